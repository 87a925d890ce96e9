package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-fetch/internal/config"
)

func TestNewPolicy_Defaults(t *testing.T) {
	p, err := NewPolicy(config.NewDefaultConfig().Fetch)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultURLPattern, p.Pattern())
	assert.True(t, p.AllowsURL("http://localhost:8888/test"))
	assert.True(t, p.AllowsURL("http://localhost"))
	assert.False(t, p.AllowsURL("https://localhost/"))
	assert.False(t, p.AllowsURL("http://localhost.evil.com/"))
	assert.Equal(t, []string{"GET"}, p.AllowedMethods())
	assert.Equal(t, 30*time.Second, p.Timeout())
	assert.Equal(t, int64(100*1024), p.MaxBytes())
}

func TestNewPolicy_NormalisesSets(t *testing.T) {
	cfg := config.NewDefaultConfig().Fetch
	cfg.AllowedMethods = []string{"get", " Post ", "GET", ""}
	cfg.AllowedToolHeaders = []string{"User-Agent"}
	cfg.AllowedPassthroughHeaders = []string{"AUTHORIZATION"}

	p, err := NewPolicy(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET", "POST"}, p.AllowedMethods())
	assert.True(t, p.AllowsMethod("post"))
	assert.True(t, p.AllowsToolHeader("user-agent"))
	assert.True(t, p.AllowsToolHeader("USER-AGENT"))
	assert.True(t, p.AllowsPassthroughHeader("Authorization"))
	assert.False(t, p.AllowsPassthroughHeader("user-agent"))
}

func TestNewPolicy_AllowedMethodsIsACopy(t *testing.T) {
	p, err := NewPolicy(config.NewDefaultConfig().Fetch)
	require.NoError(t, err)

	methods := p.AllowedMethods()
	methods[0] = "DELETE"
	assert.Equal(t, []string{"GET"}, p.AllowedMethods())
}

func TestNewPolicy_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.FetchConfig)
	}{
		{"bad pattern", func(c *config.FetchConfig) { c.AllowedURLPattern = "([" }},
		{"zero timeout", func(c *config.FetchConfig) { c.TimeoutSeconds = 0 }},
		{"negative size", func(c *config.FetchConfig) { c.MaxResponseSizeKB = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig().Fetch
			tt.mutate(&cfg)
			_, err := NewPolicy(cfg)
			assert.Error(t, err)
		})
	}
}
