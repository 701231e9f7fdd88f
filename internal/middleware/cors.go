// Package middleware provides reusable HTTP middleware for the carpool API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// corsHeaders are the request headers the API reads: JSON bodies, the
// localized pattern labels and a client-supplied request ID.
var corsHeaders = []string{"Content-Type", "Accept-Language", "X-Request-Id"}

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// Allowed methods are the ones routes actually serves, plus OPTIONS.
func NewCORSHandler(allowedOrigins []string, routes chi.Routes) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: routeMethods(routes),
		AllowedHeaders: corsHeaders,
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}

// routeMethods lists the distinct methods registered on routes, sorted.
func routeMethods(routes chi.Routes) []string {
	methods := []string{http.MethodOptions}
	_ = chi.Walk(routes, func(method, _ string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !slices.Contains(methods, method) {
			methods = append(methods, method)
		}
		return nil
	})
	slices.Sort(methods)
	return methods
}
