package display

import (
	"fmt"

	"github.com/muurk/sensordash/internal/protocol"
)

// Default panel size (ILI9486 in landscape)
const (
	DefaultWidth  = 480
	DefaultHeight = 320
)

// BoxKind is what a box shows
type BoxKind int

const (
	KindTemp BoxKind = iota
	KindHumid
	KindMoist
	KindVoice
)

func (k BoxKind) String() string {
	switch k {
	case KindTemp:
		return "TEMP"
	case KindHumid:
		return "HUMID"
	case KindMoist:
		return "MOIST"
	case KindVoice:
		return "VOICE"
	default:
		return fmt.Sprintf("BoxKind(%d)", int(k))
	}
}

// BoxID names one fixed screen region: a kind, optionally tagged with the
// sensor unit it belongs to.
type BoxID struct {
	Device protocol.Device
	Kind   BoxKind
}

func (id BoxID) String() string {
	if id.Device == protocol.DeviceNone {
		return id.Kind.String()
	}
	return id.Device.String() + "/" + id.Kind.String()
}

// Rect is a pixel rectangle
type Rect struct {
	X, Y, W, H int
}

// Point is a pixel position
type Point struct {
	X, Y int
}

// Box is the static description of one region
type Box struct {
	ID          BoxID
	Rect        Rect
	Background  Color
	Label       string
	Suffix      string
	Placeholder string
}

// Layout is the immutable box geometry for one dialect and screen size
type Layout struct {
	Dialect protocol.Dialect
	Width   int
	Height  int

	boxes map[BoxID]Box
	order []BoxID
	mood  *Rect
}

// boxStyle is the per-kind part of the layout table
type boxStyle struct {
	background  Color
	label       string
	suffix      string
	placeholder string
}

var boxStyles = map[BoxKind]boxStyle{
	KindTemp:  {Blue, "TEMP", "C", "--.-"},
	KindHumid: {Green, "HUMID", "%", "--"},
	KindMoist: {Orange, "MOIST", "", "---"},
	KindVoice: {Purple, "VOICE", "", "READY"},
}

// cell places a box on a grid
type cell struct {
	id       BoxID
	col, row int
}

// grid describes a dialect's arrangement. Boxes fill cols x rows cells.
// With stripRows > 0 the boxes only take that many quarters of the screen
// height and the rest below is the mood panel.
type grid struct {
	cols, rows int
	cells      []cell
	stripRows  int
}

func dev(d protocol.Device, k BoxKind) BoxID { return BoxID{Device: d, Kind: k} }

var grids = map[protocol.Dialect]grid{
	protocol.DialectSingle: {
		cols: 2, rows: 2,
		cells: []cell{
			{dev(protocol.DeviceNone, KindTemp), 0, 0},
			{dev(protocol.DeviceNone, KindHumid), 1, 0},
			{dev(protocol.DeviceNone, KindMoist), 0, 1},
			{dev(protocol.DeviceNone, KindVoice), 1, 1},
		},
	},
	protocol.DialectDual: {
		cols: 4, rows: 2,
		cells: []cell{
			{dev(protocol.DeviceA, KindTemp), 0, 0},
			{dev(protocol.DeviceA, KindHumid), 1, 0},
			{dev(protocol.DeviceA, KindMoist), 2, 0},
			{dev(protocol.DeviceA, KindVoice), 3, 0},
			{dev(protocol.DeviceB, KindTemp), 0, 1},
			{dev(protocol.DeviceB, KindHumid), 1, 1},
			{dev(protocol.DeviceB, KindMoist), 2, 1},
			{dev(protocol.DeviceB, KindVoice), 3, 1},
		},
	},
	protocol.DialectMood: {
		cols: 3, rows: 1,
		stripRows: 1,
		cells: []cell{
			{dev(protocol.DeviceNone, KindTemp), 0, 0},
			{dev(protocol.DeviceNone, KindHumid), 1, 0},
			{dev(protocol.DeviceNone, KindMoist), 2, 0},
		},
	},
}

// NewLayout computes the box table for a dialect and screen size
func NewLayout(d protocol.Dialect, width, height int) (*Layout, error) {
	g, ok := grids[d]
	if !ok {
		return nil, fmt.Errorf("no layout for dialect %q", d)
	}
	if width < 8*g.cols || height < 8*g.rows*4 {
		return nil, fmt.Errorf("screen %dx%d too small for %s layout", width, height, d)
	}

	gridH := height
	if g.stripRows > 0 {
		gridH = height * g.stripRows / 4
	}
	cellW := width / g.cols
	cellH := gridH / g.rows

	l := &Layout{
		Dialect: d,
		Width:   width,
		Height:  height,
		boxes:   make(map[BoxID]Box, len(g.cells)),
	}

	for _, c := range g.cells {
		style := boxStyles[c.id.Kind]
		label := style.label
		if c.id.Device != protocol.DeviceNone {
			label = style.label + " " + c.id.Device.String()
		}
		l.boxes[c.id] = Box{
			ID:          c.id,
			Rect:        Rect{X: c.col * cellW, Y: c.row * cellH, W: cellW, H: cellH},
			Background:  style.background,
			Label:       label,
			Suffix:      style.suffix,
			Placeholder: style.placeholder,
		}
		l.order = append(l.order, c.id)
	}

	if g.stripRows > 0 {
		l.mood = &Rect{X: 0, Y: gridH, W: width, H: height - gridH}
	}

	return l, nil
}

// Box looks up a box by id
func (l *Layout) Box(id BoxID) (Box, bool) {
	b, ok := l.boxes[id]
	return b, ok
}

// Boxes returns every box in paint order
func (l *Layout) Boxes() []Box {
	boxes := make([]Box, 0, len(l.order))
	for _, id := range l.order {
		boxes = append(boxes, l.boxes[id])
	}
	return boxes
}

// IDs returns every box id in paint order
func (l *Layout) IDs() []BoxID {
	return append([]BoxID(nil), l.order...)
}

// MoodRect returns the mood panel area, if the dialect has one
func (l *Layout) MoodRect() (Rect, bool) {
	if l.mood == nil {
		return Rect{}, false
	}
	return *l.mood, true
}

// HasMood reports whether the layout has a mood panel
func (l *Layout) HasMood() bool {
	return l.mood != nil
}
