package framebuffer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Framebuffer is an in-memory RGB panel that implements display.Renderer.
// Text sizes follow the panel's 6x8 glyph cell: each string is drawn with
// the 7x13 bitmap face and scaled into the cell area the layout computed.
type Framebuffer struct {
	mu     sync.Mutex
	img    *image.RGBA
	frames int
}

// New creates a black framebuffer of the given size
func New(width, height int) *Framebuffer {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(display.Black), image.Point{}, xdraw.Src)
	return &Framebuffer{img: img}
}

// Bounds returns the panel rectangle
func (fb *Framebuffer) Bounds() image.Rectangle {
	return fb.img.Bounds()
}

// At returns the color of one pixel
func (fb *Framebuffer) At(x, y int) color.RGBA {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.img.RGBAAt(x, y)
}

// Frames is the number of paints drawn so far
func (fb *Framebuffer) Frames() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.frames
}

// DrawBox fills the box, outlines it and draws its label and value
func (fb *Framebuffer) DrawBox(p display.BoxPaint) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	r := rect(p.Rect)
	fillRect(fb.img, r, p.Background)
	for i := 0; i < display.BorderWidth; i++ {
		outline(fb.img, r.Inset(i), p.Border)
	}
	drawText(fb.img, p.Label, p.LabelOrigin, p.LabelSize, p.Foreground)
	drawText(fb.img, p.Value, p.ValueOrigin, p.ValueSize, p.Foreground)
	fb.frames++
	return nil
}

// DrawMood fills the panel, draws the face and the wrapped message
func (fb *Framebuffer) DrawMood(p display.MoodPaint) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fillRect(fb.img, rect(p.Rect), p.Background)
	drawFace(fb.img, p.FaceCenter, p.FaceRadius, p.Mood, p.Foreground)
	for i, line := range p.Lines {
		if i < len(p.LineOrigins) {
			drawText(fb.img, line, p.LineOrigins[i], p.TextSize, p.Foreground)
		}
	}
	fb.frames++
	return nil
}

// Image returns a copy of the panel, scaled up by scale when above 1
func (fb *Framebuffer) Image(scale int) *image.RGBA {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if scale < 1 {
		scale = 1
	}
	b := fb.img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), fb.img, b, xdraw.Src, nil)
	return dst
}

// WritePNG encodes the panel as PNG
func (fb *Framebuffer) WritePNG(w io.Writer, scale int) error {
	if err := png.Encode(w, fb.Image(scale)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG writes the panel to path through a temporary file, so a viewer
// polling the file never sees half an image.
func (fb *Framebuffer) SavePNG(path string, scale int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.png")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := fb.WritePNG(tmp, scale); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// SnapshotRenderer draws into a framebuffer and rewrites a PNG file after
// every paint
type SnapshotRenderer struct {
	FB    *Framebuffer
	Path  string
	Scale int
}

func (s *SnapshotRenderer) DrawBox(p display.BoxPaint) error {
	if err := s.FB.DrawBox(p); err != nil {
		return err
	}
	return s.save()
}

func (s *SnapshotRenderer) DrawMood(p display.MoodPaint) error {
	if err := s.FB.DrawMood(p); err != nil {
		return err
	}
	return s.save()
}

func (s *SnapshotRenderer) save() error {
	if err := s.FB.SavePNG(s.Path, s.Scale); err != nil {
		logging.Warn("Snapshot not written", zap.String("path", s.Path), zap.Error(err))
		return err
	}
	return nil
}

func rect(r display.Rect) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	xdraw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, xdraw.Src)
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// drawText renders s at the native face size and scales it into the
// glyph-cell area starting at origin
func drawText(img *image.RGBA, s string, origin display.Point, size int, c color.Color) {
	if s == "" || size < 1 {
		return
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Height
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	dst := image.Rect(origin.X, origin.Y,
		origin.X+display.TextWidth(s, size), origin.Y+display.GlyphHeight(size))
	xdraw.NearestNeighbor.Scale(img, dst, src, src.Bounds(), xdraw.Over, nil)
}

// drawFace draws a round face: outline, two eyes, and a mouth that smiles
// for Healthy and frowns for Unhealthy
func drawFace(img *image.RGBA, center display.Point, radius int, mood display.Mood, c color.Color) {
	if radius < 4 {
		return
	}
	thick := max(1, radius/20)
	ring(img, center.X, center.Y, radius, thick, c)

	eyeR := max(1, radius/8)
	disc(img, center.X-radius/3, center.Y-radius/4, eyeR, c)
	disc(img, center.X+radius/3, center.Y-radius/4, eyeR, c)

	mouthR := float64(radius) / 2
	cx, cy := float64(center.X), float64(center.Y)
	from, to := 20.0, 160.0
	if mood == display.Unhealthy {
		cy += float64(radius) * 0.75
		from, to = 200.0, 340.0
	}
	for deg := from; deg <= to; deg += 2 {
		rad := deg * math.Pi / 180
		x := cx + mouthR*math.Cos(rad)
		y := cy + mouthR*math.Sin(rad)
		disc(img, int(math.Round(x)), int(math.Round(y)), thick, c)
	}
}

func ring(img *image.RGBA, cx, cy, r, thick int, c color.Color) {
	outer := r * r
	inner := (r - thick) * (r - thick)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d := dx*dx + dy*dy
			if d <= outer && d > inner {
				set(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func disc(img *image.RGBA, cx, cy, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				set(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func set(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Rect) {
		img.Set(x, y, c)
	}
}
