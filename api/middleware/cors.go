package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var functionCORSHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// CORS answers browser preflights for the function endpoints. Any origin may
// call them; credentials travel in the Authorization header, not cookies.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   functionCORSHeaders,
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
