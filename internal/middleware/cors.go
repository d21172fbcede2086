package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS adds cross-origin headers. Preflight requests are passed on to the
// router, so an OPTIONS call gets the same 405 as any other unsupported verb.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:     []string{"Content-Type", "Authorization", RequestIDHeader},
		AllowCredentials:   true,
		OptionsPassthrough: true,
	})
	return c.Handler
}
