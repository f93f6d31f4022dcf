package handler

import (
	"talad/pkg/contracts"

	"github.com/julienschmidt/httprouter"
)

// Registry bundles every rental handler behind one RegisterRoutes.
type Registry struct {
	handlers []contracts.Handler
}

func NewRegistry(handlers ...contracts.Handler) *Registry {
	return &Registry{handlers: handlers}
}

func (r *Registry) RegisterRoutes(router *httprouter.Router) {
	for _, h := range r.handlers {
		h.RegisterRoutes(router)
	}
}
