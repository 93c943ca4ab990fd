package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// OriginAllowed reports whether a browser origin may call the API. An empty
// list or a "*" entry allows any origin.
func OriginAllowed(allowedOrigins []string) func(origin string) bool {
	allowAll := allowsAnyOrigin(allowedOrigins)
	return func(origin string) bool {
		if allowAll {
			return true
		}
		for _, o := range allowedOrigins {
			if o == origin {
				return true
			}
		}
		return false
	}
}

// CORSMiddleware allows browser clients from allowedOrigins. Credentials are
// only allowed for an explicit origin list, never for "*".
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := OriginAllowed(allowedOrigins)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc:  allowed,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: !allowsAnyOrigin(allowedOrigins),
	})
	return c.Handler
}

func allowsAnyOrigin(allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
