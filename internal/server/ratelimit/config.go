package ratelimit

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig is the bucket used for requests matching Path and Method.
// Path segments written as "*" match any single segment.
type EndpointConfig struct {
	Path   string
	Method string
	Every  time.Duration // one token per Every
	Burst  int
}

// Limit returns the refill rate. A zero Every means unlimited.
func (e EndpointConfig) Limit() rate.Limit {
	if e.Every <= 0 {
		return rate.Inf
	}
	return rate.Every(e.Every)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
	IdleTTL           time.Duration
	Whitelist         map[string]bool
	Blacklist         map[string]bool
	Endpoints         []EndpointConfig
}

// NewConfig builds a Config from the server settings. Allow and deny lists
// are comma-separated client addresses.
func NewConfig(enabled bool, rps float64, burst int, whitelist, blacklist string) *Config {
	return &Config{
		Enabled:           enabled,
		RequestsPerSecond: rps,
		Burst:             burst,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           time.Hour,
		Whitelist:         parseIPList(whitelist),
		Blacklist:         parseIPList(blacklist),
		Endpoints:         DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns stricter buckets for the endpoints that
// call the LLM.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Pipeline runs
		{Path: "/messages", Method: "POST", Every: 6 * time.Minute, Burst: 3},
		{Path: "/messages/stream", Method: "POST", Every: 6 * time.Minute, Burst: 3},

		// Single LLM calls
		{Path: "/conversations/*/feedback", Method: "POST", Every: 6 * time.Second, Burst: 5},
		{Path: "/conversations/*/selection-review", Method: "POST", Every: 6 * time.Second, Burst: 5},
		{Path: "/job-descriptions/review", Method: "POST", Every: 6 * time.Second, Burst: 5},

		// Outbound page downloads
		{Path: "/job-postings/fetch", Method: "POST", Every: 2 * time.Second, Burst: 5},

		// Embedding calls
		{Path: "/candidates", Method: "POST", Every: time.Second, Burst: 10},
		{Path: "/candidates/*", Method: "PATCH", Every: time.Second, Burst: 10},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
