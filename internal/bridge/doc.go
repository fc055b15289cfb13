// Package bridge is the hub's side of the serial link to the display unit.
//
// A Bridge opens the port (115200 8N1), waits for the board to come out
// of the reset that opening the port triggers, and then sends one command
// line at a time. Each Send writes the line with a trailing newline,
// drains the output buffer and reads back a single reply line:
//
//	b, _ := bridge.New(bridge.Config{Port: "/dev/ttyUSB0", Dialect: protocol.DialectSingle})
//	if err := b.Connect(ctx); err != nil {
//	    // carry on unconnected; Send reports ErrTypeNotConnected
//	}
//	ack, err := b.SendTemperature(ctx, protocol.DeviceNone, 23.7) // "OK TEMP"
//
// Lines are checked against the display's grammar before they are
// written, so a command the display would answer with ERR never leaves
// the host. Failures are reported as *Error values; see the IsXxxError
// helpers.
//
// With Config.AnalysisDir set, every exchange is appended to a JSONL
// capture file that tools/replay_capture.go can read back.
package bridge
