package main

import (
	"net/http"

	"github.com/rs/cors"
)

// allMethods is every method a browser may ask for in a preflight.
var allMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// withCORS lets the listed front-end origins call the API from a browser,
// with credentials, any method and any header.
func withCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   allMethods,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(h)
}
