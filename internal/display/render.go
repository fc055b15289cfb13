package display

import (
	"errors"
	"fmt"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// Box drawing constants, in pixels and text sizes
const (
	BorderWidth = 2
	LabelSize   = 2
	ValueSize   = 4
	MoodSize    = 3

	labelTop   = 15
	labelGap   = 4
	moodMargin = 10
	lineGap    = 6
)

// BoxPaint is everything a renderer needs to draw one box
type BoxPaint struct {
	ID          BoxID
	Rect        Rect
	Background  Color
	Border      Color
	Foreground  Color
	Label       string
	LabelSize   int
	LabelOrigin Point
	Value       string
	ValueSize   int
	ValueOrigin Point
}

// MoodPaint is everything a renderer needs to draw the mood panel
type MoodPaint struct {
	Rect        Rect
	Mood        Mood
	Background  Color
	Foreground  Color
	FaceCenter  Point
	FaceRadius  int
	Message     string
	Lines       []string
	LineOrigins []Point
	TextSize    int
}

// Renderer draws paints onto some surface: a framebuffer, a terminal, a log
type Renderer interface {
	DrawBox(p BoxPaint) error
	DrawMood(p MoodPaint) error
}

// PaintBox computes the paint for one box. Text is centered horizontally
// using the monospace glyph metric and shrunk one size at a time until it
// fits inside the border.
func PaintBox(s *State, id BoxID) (BoxPaint, bool) {
	box, ok := s.layout.Box(id)
	if !ok {
		return BoxPaint{}, false
	}
	r := box.Rect
	bg := s.Background(id)
	inner := r.W - 2*BorderWidth - 4

	labelSize := fitSize(box.Label, inner, LabelSize)
	labelOrigin := Point{X: CenterX(r, TextWidth(box.Label, labelSize)), Y: r.Y + labelTop}
	labelBottom := labelOrigin.Y + GlyphHeight(labelSize) + labelGap

	value := s.DisplayValue(id)
	valueSize := fitSize(value, inner, ValueSize)
	valueY := max(r.Y+r.H/2-GlyphHeight(valueSize)/2, labelBottom)
	for valueSize > 1 && valueY+GlyphHeight(valueSize) > r.Y+r.H-BorderWidth {
		valueSize--
		valueY = max(r.Y+r.H/2-GlyphHeight(valueSize)/2, labelBottom)
	}

	return BoxPaint{
		ID:          id,
		Rect:        r,
		Background:  bg,
		Border:      White,
		Foreground:  TextOn(bg),
		Label:       box.Label,
		LabelSize:   labelSize,
		LabelOrigin: labelOrigin,
		Value:       value,
		ValueSize:   valueSize,
		ValueOrigin: Point{X: CenterX(r, TextWidth(value, valueSize)), Y: valueY},
	}, true
}

// PaintMood computes the mood panel: a face on the left half and the
// message word-wrapped into the right half, cut at the panel bottom.
func PaintMood(s *State) (MoodPaint, bool) {
	r, ok := s.layout.MoodRect()
	if !ok {
		return MoodPaint{}, false
	}
	bg := s.mood.Background()

	textArea := Rect{
		X: r.X + r.W/2,
		Y: r.Y + moodMargin,
		W: r.W/2 - moodMargin,
		H: r.H - 2*moodMargin,
	}
	size := MoodSize
	lineH := GlyphHeight(size) + lineGap
	lines := Fit(Wrap(s.message, textArea.W, GlyphWidth(size)), textArea.H, lineH)

	top := textArea.Y + (textArea.H-len(lines)*lineH)/2
	origins := make([]Point, len(lines))
	for i, line := range lines {
		origins[i] = Point{X: CenterX(textArea, TextWidth(line, size)), Y: top + i*lineH}
	}

	return MoodPaint{
		Rect:        r,
		Mood:        s.mood,
		Background:  bg,
		Foreground:  TextOn(bg),
		FaceCenter:  Point{X: r.X + r.W/4, Y: r.Y + r.H/2},
		FaceRadius:  min(r.H/2-moodMargin, r.W/4-moodMargin),
		Message:     s.message,
		Lines:       lines,
		LineOrigins: origins,
		TextSize:    size,
	}, true
}

func fitSize(text string, maxWidth, size int) int {
	for size > 1 && TextWidth(text, size) > maxWidth {
		size--
	}
	return size
}

// Painter sends render requests to a renderer
type Painter struct {
	renderer Renderer
}

// NewPainter creates a painter for r
func NewPainter(r Renderer) *Painter {
	return &Painter{renderer: r}
}

// Render draws exactly the regions named by req
func (p *Painter) Render(s *State, req RenderRequest) error {
	for _, id := range req.Boxes {
		paint, ok := PaintBox(s, id)
		if !ok {
			continue
		}
		if err := p.renderer.DrawBox(paint); err != nil {
			return fmt.Errorf("failed to draw box %s: %w", id, err)
		}
	}
	if req.Mood {
		paint, ok := PaintMood(s)
		if !ok {
			return nil
		}
		if err := p.renderer.DrawMood(paint); err != nil {
			return fmt.Errorf("failed to draw mood panel: %w", err)
		}
	}
	return nil
}

// LogRenderer writes each paint as a log line. Used when no screen is
// attached.
type LogRenderer struct{}

func (LogRenderer) DrawBox(p BoxPaint) error {
	logging.Info("Box painted",
		zap.String("box", p.ID.String()),
		zap.String("label", p.Label),
		zap.String("value", p.Value),
		zap.String("background", p.Background.Hex()),
		zap.Int("value_size", p.ValueSize),
	)
	return nil
}

func (LogRenderer) DrawMood(p MoodPaint) error {
	logging.Info("Mood painted",
		zap.String("mood", p.Mood.String()),
		zap.String("message", p.Message),
		zap.Strings("lines", p.Lines),
	)
	return nil
}

// MultiRenderer draws to every renderer in turn
type MultiRenderer []Renderer

func (m MultiRenderer) DrawBox(p BoxPaint) error {
	var errs []error
	for _, r := range m {
		if err := r.DrawBox(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRenderer) DrawMood(p MoodPaint) error {
	var errs []error
	for _, r := range m {
		if err := r.DrawMood(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
