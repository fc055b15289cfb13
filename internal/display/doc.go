// Package display holds the display unit's screen model: the box layout,
// the current value of every box, the mood logic, and the boundary to
// whatever actually draws pixels.
//
// A Layout is computed once per dialect and screen size. State applies
// parsed protocol commands and answers with a RenderRequest naming only
// the regions that changed; a Painter turns that request into BoxPaint and
// MoodPaint values with all text positions already worked out, and hands
// them to a Renderer.
//
//	layout, _ := display.NewLayout(protocol.DialectSingle, 480, 320)
//	state := display.NewState(layout)
//	painter := display.NewPainter(display.LogRenderer{})
//
//	if req, ok := state.Apply(cmd); ok {
//	    _ = painter.Render(state, req)
//	}
package display
