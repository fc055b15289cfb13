package display

import (
	"errors"
	"reflect"
	"testing"

	"github.com/muurk/sensordash/internal/protocol"
)

type recordingRenderer struct {
	boxes []BoxPaint
	moods []MoodPaint
	err   error
}

func (r *recordingRenderer) DrawBox(p BoxPaint) error {
	r.boxes = append(r.boxes, p)
	return r.err
}

func (r *recordingRenderer) DrawMood(p MoodPaint) error {
	r.moods = append(r.moods, p)
	return r.err
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     []string
	}{
		{"fits on one line", "hello world", 66, []string{"hello world"}},
		{"wraps at word", "hello world", 60, []string{"hello", "world"}},
		{"greedy packing", "a bb ccc dd e", 36, []string{"a bb", "ccc dd", "e"}},
		{"long word split", "abcdefghij", 24, []string{"abcd", "efgh", "ij"}},
		{"extra spaces ignored", "  a   b  ", 60, []string{"a b"}},
		{"empty", "", 60, nil},
		{"too narrow", "abc", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.maxWidth, GlyphWidth(1))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestFit(t *testing.T) {
	lines := []string{"one", "two", "three", "four"}
	tests := []struct {
		maxHeight int
		want      []string
	}{
		{100, lines},
		{30, []string{"one", "two", "three"}},
		{29, []string{"one", "two"}},
		{9, nil},
	}
	for _, tt := range tests {
		got := Fit(lines, tt.maxHeight, 10)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Fit(%d) = %q, want %q", tt.maxHeight, got, tt.want)
		}
	}
}

func TestPaintBoxCentersText(t *testing.T) {
	s := newTestState(t, protocol.DialectSingle)
	s.Apply(protocol.SetTemperature{Value: 23.7})

	p, ok := PaintBox(s, temp)
	if !ok {
		t.Fatal("PaintBox() ok = false")
	}
	// "TEMP" at size 2: 4*12 = 48px in a 240px box
	if want := (Point{96, 15}); p.LabelOrigin != want {
		t.Errorf("LabelOrigin = %+v, want %+v", p.LabelOrigin, want)
	}
	// "23.7C" at size 4: 5*24 = 120px, vertically at H/2-16
	if want := (Point{60, 64}); p.ValueOrigin != want {
		t.Errorf("ValueOrigin = %+v, want %+v", p.ValueOrigin, want)
	}
	if p.Value != "23.7C" || p.ValueSize != 4 {
		t.Errorf("Value = %q size %d, want 23.7C size 4", p.Value, p.ValueSize)
	}
	if p.Background != Blue || p.Border != White {
		t.Errorf("colors = %s/%s, want blue/white", p.Background.Hex(), p.Border.Hex())
	}
}

func TestPaintBoxShrinksLongValues(t *testing.T) {
	s := newTestState(t, protocol.DialectSingle)
	s.Apply(protocol.SetVoiceText{Text: "ABCDEFGHIJ"})

	p, _ := PaintBox(s, voice)
	if p.ValueSize >= ValueSize {
		t.Errorf("ValueSize = %d, want smaller than %d", p.ValueSize, ValueSize)
	}
	if w := TextWidth(p.Value, p.ValueSize); w > p.Rect.W-2*BorderWidth {
		t.Errorf("value width %d overflows box width %d", w, p.Rect.W)
	}
}

func TestPaintBoxStripKeepsValueBelowLabel(t *testing.T) {
	s := newTestState(t, protocol.DialectMood)
	p, _ := PaintBox(s, temp)
	labelBottom := p.LabelOrigin.Y + GlyphHeight(p.LabelSize)
	if p.ValueOrigin.Y < labelBottom {
		t.Errorf("value y %d overlaps label ending at %d", p.ValueOrigin.Y, labelBottom)
	}
	if bottom := p.ValueOrigin.Y + GlyphHeight(p.ValueSize); bottom > p.Rect.Y+p.Rect.H {
		t.Errorf("value bottom %d below box bottom %d", bottom, p.Rect.Y+p.Rect.H)
	}
}

func TestPaintMood(t *testing.T) {
	s := newTestState(t, protocol.DialectMood)
	s.Apply(protocol.SetVoiceText{Text: "water me now please"})

	p, ok := PaintMood(s)
	if !ok {
		t.Fatal("PaintMood() ok = false")
	}
	if len(p.Lines) == 0 || len(p.Lines) != len(p.LineOrigins) {
		t.Fatalf("Lines = %q, origins = %d", p.Lines, len(p.LineOrigins))
	}
	for i, line := range p.Lines {
		if w := TextWidth(line, p.TextSize); w > p.Rect.W/2 {
			t.Errorf("line %d %q is %dpx, wider than half the panel", i, line, w)
		}
	}
	if p.Background != Healthy.Background() {
		t.Errorf("Background = %s, want healthy color", p.Background.Hex())
	}

	single := newTestState(t, protocol.DialectSingle)
	if _, ok := PaintMood(single); ok {
		t.Error("PaintMood(single) ok = true, want false")
	}
}

func TestPainterRendersOnlyRequested(t *testing.T) {
	s := newTestState(t, protocol.DialectSingle)
	rec := &recordingRenderer{}
	painter := NewPainter(rec)

	req, _ := s.Apply(protocol.SetHumidity{Value: 41})
	if err := painter.Render(s, req); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(rec.boxes) != 1 || rec.boxes[0].ID != humid {
		t.Errorf("painted %d boxes, want only HUMID", len(rec.boxes))
	}
	if len(rec.moods) != 0 {
		t.Errorf("painted %d mood panels, want 0", len(rec.moods))
	}
}

func TestPainterFullRepaint(t *testing.T) {
	s := newTestState(t, protocol.DialectMood)
	rec := &recordingRenderer{}
	if err := NewPainter(rec).Render(s, s.Full()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(rec.boxes) != 3 || len(rec.moods) != 1 {
		t.Errorf("painted %d boxes and %d moods, want 3 and 1", len(rec.boxes), len(rec.moods))
	}
}

func TestPainterPropagatesErrors(t *testing.T) {
	s := newTestState(t, protocol.DialectSingle)
	boom := errors.New("boom")
	err := NewPainter(&recordingRenderer{err: boom}).Render(s, s.Full())
	if !errors.Is(err, boom) {
		t.Errorf("Render() error = %v, want %v", err, boom)
	}
}

func TestMultiRenderer(t *testing.T) {
	a, b := &recordingRenderer{}, &recordingRenderer{}
	m := MultiRenderer{a, b, LogRenderer{}}
	if err := m.DrawBox(BoxPaint{ID: temp}); err != nil {
		t.Fatalf("DrawBox() error = %v", err)
	}
	if len(a.boxes) != 1 || len(b.boxes) != 1 {
		t.Errorf("boxes = %d/%d, want 1/1", len(a.boxes), len(b.boxes))
	}
}
