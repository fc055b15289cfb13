// Package discovery finds the sensordash hub on the local network over
// mDNS, so a sensor node does not need the hub's address configured.
//
// The hub announces itself as "_sensordash._tcp" with TXT records that
// carry the display dialect, the hub version and whether it serves HTTPS:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	go discovery.Advertise(ctx, discovery.Advertisement{Port: 5000, Dialect: "single"})
//
// A node looks it up before it starts posting readings:
//
//	hub, err := discovery.FindHub(ctx)
//	if err != nil {
//	    // fall back to the configured hub URL
//	}
//	poster.URL = hub.SensorURL()
//
// Entries without an address are ignored. IPv4 is preferred when a hub
// advertises both families.
package discovery
