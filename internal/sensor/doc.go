// Package sensor is the sensor node side of sensordash.
//
// A node takes temperature, humidity and soil moisture readings from a
// Source and posts them to the hub's /sensor endpoint every couple of
// seconds:
//
//	src := sensor.NewThrottled(sensor.NewSimulated(1))
//	poster := sensor.NewPoster("http://hub.local:5000", src)
//	poster.Run(ctx)
//
// Sources:
//
//   - Simulated: a seeded random walk, for running without hardware
//   - SerialSource: parses the text the ESP32 sensor sketch prints on USB
//   - Throttled: keeps any source to the DHT11's 2 second read interval
//
// Readings that fail to post are logged and dropped; the next reading
// replaces them. An MQTTPublisher can be attached to the poster to send
// every reading to a broker as well.
package sensor
