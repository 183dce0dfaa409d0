package middleware

import (
	"net/http"

	"github.com/nickvanderzwet/tabserve/pkg/httputil"
)

// Chain applies one or more middleware functions to a handler. The first
// middleware in the list becomes the outermost wrapper, executed first.
func Chain(h http.Handler, middlewares ...httputil.Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
