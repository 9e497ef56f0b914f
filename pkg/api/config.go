// Package api exposes the HTTP trigger surface of the daily close service.
package api

// Config holds API server configuration.
type Config struct {
	// Enabled controls whether the API server starts.
	Enabled bool `yaml:"enabled" default:"true"`
	// Addr is the address to listen on.
	Addr string `yaml:"addr" default:":8080"`
}
