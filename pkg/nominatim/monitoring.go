package nominatim

import "time"

// MonitoringHooks defines optional callbacks invoked around each request.
// The client carries no telemetry of its own; hooks let callers feed their
// own metrics without coupling this package to a metrics backend.
type MonitoringHooks struct {
	// OnRequest is called before an HTTP request is made.
	OnRequest func(operation string)

	// OnResponse is called after the round trip completes, successfully
	// or not. Decode failures count as unsuccessful.
	OnResponse func(operation string, duration time.Duration, success bool)
}
