// Package protocol implements the sensordash line protocol.
//
// The hub drives the display unit with newline-terminated ASCII commands
// over a serial link. The display acknowledges each command with one reply
// line. This package is shared by both ends: the display side assembles
// bytes into lines and parses them into Commands, the host side builds and
// validates lines and parses the replies.
//
// # Grammar
//
// Three dialects exist, one per display layout:
//
//	single:  S T <float> | S H <int> | S M <int> | V <text>
//	dual:    S <A|B> <T|H|M> <value> | V <A|B> <text>
//	mood:    single grammar | H | U
//
// Matching is case-sensitive with exactly one space between fields. Lines
// that do not match, including non-numeric values, parse as Unknown.
// Voice text is cut to the dialect's box width (10, 6 or 12 characters).
//
// # Replies
//
//	OK TEMP | OK HUMID | OK MOIST | OK VOICE     (single, mood)
//	OK A T | OK V A                              (dual)
//	OK HEALTHY | OK UNHEALTHY                    (mood)
//	ERR Unknown: <line>
//
// After startup the display writes the banner "LCD Ready".
//
// # Line Assembly
//
// LineAssembler buffers at most MaxLineLength bytes. Carriage returns are
// ignored, empty lines are dropped, and an overlong line is discarded
// without any reply.
//
// # Usage Example - Display Side
//
//	asm := protocol.NewLineAssembler()
//	parser := protocol.NewParser(protocol.DialectSingle)
//
//	for _, b := range data {
//	    line, ok := asm.Feed(b)
//	    if !ok {
//	        continue
//	    }
//	    cmd := parser.Parse(line)
//	    fmt.Fprintln(port, protocol.Reply(cmd))
//	}
//
// # Usage Example - Host Side
//
//	line := protocol.BuildSetTemperature(protocol.DeviceNone, 23.74)  // "S T 23.7"
//	if _, err := protocol.Validate(protocol.DialectSingle, line); err != nil {
//	    return err
//	}
package protocol
