// Package ui renders the styled output of the sensordash command line
// tools: a header box before a long-running command starts, and result
// boxes for one-shot commands such as "sensordash-hub send" or
// "sensordash-node read".
//
// Output is plain lipgloss rendering written to a Printer, not an
// interactive program. The live display emulator lives in package tui.
//
// # Logging Integration
//
// Commands that print curated output leave zap silent unless
// SENSORDASH_LOG_LEVEL or --log-level asks for it, so log lines do not
// interleave with the boxes.
package ui
