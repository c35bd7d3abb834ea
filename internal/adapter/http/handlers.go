package http

import (
	"github.com/playsquare/reviewdesk/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth    *service.AuthService
	Events  *service.EventService
	Reviews *service.ReviewService
}

// NewHandlers wires the services into the HTTP handler set.
func NewHandlers(auth *service.AuthService, events *service.EventService, reviews *service.ReviewService) *Handlers {
	return &Handlers{
		Auth:    auth,
		Events:  events,
		Reviews: reviews,
	}
}
