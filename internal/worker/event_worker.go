package worker

import (
	"github.com/fdbank/deposit-service/internal/events"
)

// HandlerRegistrar subscribes a component's handlers on a dispatcher.
type HandlerRegistrar interface {
	RegisterHandlers(dispatcher events.Dispatcher)
}

// StartEventWorkers registers every non-nil registrar's handlers.
func StartEventWorkers(dispatcher events.Dispatcher, registrars ...HandlerRegistrar) {
	if dispatcher == nil {
		return
	}
	for _, registrar := range registrars {
		if registrar == nil {
			continue
		}
		registrar.RegisterHandlers(dispatcher)
	}
}
