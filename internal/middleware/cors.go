package middleware

import (
	"net/http"
	"slices"

	"github.com/gorilla/handlers"
)

// CORS allows the frontend origins to call the API with a bearer token.
// Credentials are only allowed for explicit origins since browsers reject
// them alongside a wildcard.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	}
	if !slices.Contains(origins, "*") {
		opts = append(opts, handlers.AllowCredentials())
	}
	return handlers.CORS(opts...)
}
