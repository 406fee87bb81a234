package server

import (
	"net/http"
	"os"
	"strings"
)

// SPAMiddleware wraps an http.Handler to serve the bundled admin UI.
// API, healthz and metrics requests pass through untouched.
func SPAMiddleware(next http.Handler, staticPath, indexPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		// For everything else, try to serve as static file, or fall back to index.html
		path := staticPath + r.URL.Path

		// Serve index.html for root and SPA routes
		if r.URL.Path == "/" || r.URL.Path == "/admin" {
			http.ServeFile(w, r, indexPath)
			return
		}

		// Check if static file exists
		if _, err := os.Stat(path); os.IsNotExist(err) {
			// File doesn't exist, serve index.html for the client-side router
			http.ServeFile(w, r, indexPath)
			return
		}

		// Serve the static file
		http.FileServer(http.Dir(staticPath)).ServeHTTP(w, r)
	})
}
