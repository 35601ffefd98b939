package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the reconciliation API. Request and response
// bodies are small JSON documents; the timeouts assume no streaming endpoints.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
