package server

import (
	"vescollector/internal/dispatcher"
	"vescollector/internal/handler"
)

// Routes names the collector URLs.
type Routes struct {
	EventListener string
	Throttle      string
	TestControl   string
}

// RegisterCollector wires the collector handlers into d. Both event routes
// accept GET and POST; the root event listener URL becomes the base URL
// reported for unknown paths.
func RegisterCollector(d *dispatcher.Dispatcher, routes Routes, events, throttle *handler.EventListener, testControl *handler.TestControl) {
	for _, method := range []string{"get", "post"} {
		d.Register(method, routes.EventListener, events.Handle)
		d.Register(method, routes.Throttle, throttle.Handle)
	}

	d.Register("get", routes.TestControl, testControl.Get)
	d.Register("post", routes.TestControl, testControl.Post)

	d.SetBaseURL(routes.EventListener)
}
