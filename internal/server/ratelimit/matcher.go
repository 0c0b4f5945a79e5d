package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the endpoint configuration for a request, or nil when
// the default bucket applies. The health check is unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Path: path, Method: method}
	}

	path = strings.TrimSuffix(path, "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && pathMatches(config.Path, path) {
			return config
		}
	}
	return nil
}

func pathMatches(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}
