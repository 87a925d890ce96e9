package fetch

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bobmcallan/vire-fetch/internal/config"
)

// Policy is the immutable, compiled form of config.FetchConfig. It is built
// once at startup and shared read-only by every invocation.
type Policy struct {
	urlPattern         *regexp.Regexp
	methods            map[string]struct{}
	methodList         []string
	toolHeaders        map[string]struct{}
	passthroughHeaders map[string]struct{}
	timeoutSeconds     int
	maxResponseKB      int
}

// NewPolicy compiles cfg into a Policy.
func NewPolicy(cfg config.FetchConfig) (*Policy, error) {
	pattern, err := regexp.Compile(cfg.AllowedURLPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed URL pattern %q: %w", cfg.AllowedURLPattern, err)
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %d", cfg.TimeoutSeconds)
	}
	if cfg.MaxResponseSizeKB <= 0 {
		return nil, fmt.Errorf("max response size must be positive, got %d", cfg.MaxResponseSizeKB)
	}

	p := &Policy{
		urlPattern:         pattern,
		methods:            make(map[string]struct{}, len(cfg.AllowedMethods)),
		toolHeaders:        nameSet(cfg.AllowedToolHeaders),
		passthroughHeaders: nameSet(cfg.AllowedPassthroughHeaders),
		timeoutSeconds:     cfg.TimeoutSeconds,
		maxResponseKB:      cfg.MaxResponseSizeKB,
	}
	for _, m := range cfg.AllowedMethods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := p.methods[m]; dup {
			continue
		}
		p.methods[m] = struct{}{}
		p.methodList = append(p.methodList, m)
	}
	return p, nil
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Pattern returns the source text of the URL allow-pattern.
func (p *Policy) Pattern() string { return p.urlPattern.String() }

// AllowsURL reports whether the full URL string matches the allow-pattern.
func (p *Policy) AllowsURL(rawURL string) bool { return p.urlPattern.MatchString(rawURL) }

// AllowsMethod reports whether the uppercased method is in the allow-set.
func (p *Policy) AllowsMethod(method string) bool {
	_, ok := p.methods[strings.ToUpper(method)]
	return ok
}

// AllowedMethods returns the allowed methods in configuration order.
func (p *Policy) AllowedMethods() []string {
	out := make([]string, len(p.methodList))
	copy(out, p.methodList)
	return out
}

// AllowsToolHeader reports whether a caller-declared header may be forwarded.
func (p *Policy) AllowsToolHeader(name string) bool {
	_, ok := p.toolHeaders[strings.ToLower(name)]
	return ok
}

// AllowsPassthroughHeader reports whether a transport header may be forwarded.
func (p *Policy) AllowsPassthroughHeader(name string) bool {
	_, ok := p.passthroughHeaders[strings.ToLower(name)]
	return ok
}

// Timeout is the per-call deadline.
func (p *Policy) Timeout() time.Duration { return time.Duration(p.timeoutSeconds) * time.Second }

// TimeoutSeconds is the per-call deadline in whole seconds.
func (p *Policy) TimeoutSeconds() int { return p.timeoutSeconds }

// MaxResponseKB is the truncation threshold in kilobytes.
func (p *Policy) MaxResponseKB() int { return p.maxResponseKB }

// MaxBytes is the truncation threshold in bytes.
func (p *Policy) MaxBytes() int64 { return int64(p.maxResponseKB) * 1024 }
