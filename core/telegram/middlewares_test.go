package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
)

func middlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewares(t *testing.T) {
	require.Equal(t, []string{"recover", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	require.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, middlewareNames(DefaultMiddlewares(cfg, nil)))
}
