package core

import "pkt.systems/pslog"

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	StreamProvider StreamProvider
	Surface        Surface
	EventSink      EventSink
	Logger         pslog.Logger
}
