package ratelimit

import (
	"path"
	"strings"
)

// MatchEndpoint returns the first configuration whose method and pattern match the request,
// or nil. Patterns ending in "/" match by prefix; others use path.Match, so "*" spans exactly
// one path segment.
func MatchEndpoint(urlPath string, method string, configs []EndpointConfig) *EndpointConfig {
	for i := range configs {
		config := &configs[i]
		if config.Method != "" && config.Method != method {
			continue
		}
		if strings.HasSuffix(config.Pattern, "/") {
			if strings.HasPrefix(urlPath, config.Pattern) {
				return config
			}
			continue
		}
		if ok, err := path.Match(config.Pattern, urlPath); err == nil && ok {
			return config
		}
	}
	return nil
}
