// Package server implements the sensordash hub's HTTP API.
//
// The hub sits between the sensor node and the display unit. Readings and
// voice text arrive as JSON over HTTP and are forwarded, one command line
// at a time, over the serial link.
//
// # Endpoints
//
//	POST /sensor  {"temp": 23.7, "humidity": 41, "moisture": 1800, "device": "A"}
//	POST /voice   {"text": "turn on the lights", "shrink": true, "device": "B"}
//	GET  /health  {"status": "ok", "serial_connected": true, ...}
//	GET  /state   the hub's copy of what the display shows
//	GET  /ws      websocket stream of exchanges
//
// Every field of /sensor is optional; each one present becomes one command
// line and the response reports which were acknowledged. "device" only
// matters when the display runs the dual dialect and defaults to A.
// Voice text is shrunk to fit the display unless "shrink" is false.
// A request without a JSON object is answered 400 {"error": "No JSON data"}.
//
// # State mirror
//
// The hub applies every command the display acknowledged to its own
// display.State, so /state and the first /ws message show what is on the
// screen without asking the display. Config.VoiceCap must match the
// display's voice limit for voice boxes to agree. On a mood change both
// sides draw the message from the same pool independently; /state marks
// such a message with "message_picked" since the panel may show another.
//
// # Reconnects
//
// If the serial port is down when a request arrives, the hub tries to
// reopen it once before sending. Concurrent requests share that attempt.
// Nothing is queued: a reading that cannot be delivered is reported as not
// sent and the node's next reading replaces it.
package server
