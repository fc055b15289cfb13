// Package firmware runs the display unit: a single control loop that polls
// its transport for bytes, assembles them into command lines, applies each
// command to the display state, repaints only what changed and writes the
// acknowledgement back.
//
// Each command is handled to completion before the next byte is looked
// at, so the display state needs no locking. Nothing that goes wrong in
// the loop is fatal: unknown commands are answered with ERR, overlong
// lines are dropped, and render or write failures are logged.
//
// The transport is a serial port (RunPort) or, for running the hub against
// an emulated display, a TCP listener (ServeTCP).
package firmware
