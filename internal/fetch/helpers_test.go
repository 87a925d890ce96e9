package fetch

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-fetch/internal/common"
	"github.com/bobmcallan/vire-fetch/internal/config"
)

// loopbackPattern admits httptest servers, which listen on 127.0.0.1.
const loopbackPattern = `^http://127\.0\.0\.1:[0-9]+(/.*)?$`

var fixedTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func testPolicy(t *testing.T, mutate func(*config.FetchConfig)) *Policy {
	t.Helper()
	cfg := config.NewDefaultConfig().Fetch
	cfg.AllowedURLPattern = loopbackPattern
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPolicy(cfg)
	require.NoError(t, err)
	return p
}

// syncBuffer is a goroutine-safe bytes.Buffer for capturing access logs.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newTestPipeline(t *testing.T, policy *Policy) (*Pipeline, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	access := NewAccessLogger(out, common.NewSilentLogger())
	access.now = func() time.Time { return fixedTime }
	exec := NewExecutor(policy, access, common.NewSilentLogger(), WithClock(func() time.Time { return fixedTime }))
	return NewPipeline(policy, exec, access), out
}
