// Package tui emulates the display panel in a terminal.
//
// The emulator is a Bubble Tea program. A Renderer plugs into the firmware
// controller like any other display.Renderer and forwards every paint to
// the program, which redraws the regions as colored lipgloss blocks laid
// out in the same rows as the panel. An optional log pane shows the
// command lines received and the replies sent.
//
// Usage:
//
//	p := tui.NewProgram(layout, "stdin")
//	r := tui.NewRenderer(p)
//	c, _ := firmware.New(cfg, r, os.Stdout, firmware.WithObserver(r.Observe))
//	go func() { _ = c.Start(); _ = c.Run(ctx, os.Stdin) }()
//	_, err := p.Run()
package tui
