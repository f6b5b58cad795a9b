// Package api provides the parley HTTP server: the chat endpoint and
// read-only views over persisted conversation records.
package api

import "time"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// RequestTimeout bounds each request, including the inference call.
	// Zero disables the timeout.
	RequestTimeout time.Duration
}
