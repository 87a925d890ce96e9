package fetch

import (
	"fmt"
	"strings"
)

// RejectionKind identifies which policy check refused a request.
type RejectionKind string

const (
	RejectURL    RejectionKind = "url"
	RejectMethod RejectionKind = "method"
)

// Rejection is the terminal value a failing check returns. A nil *Rejection
// means the request may continue.
type Rejection struct {
	Kind    RejectionKind
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// check is one validation stage.
type check func(rawURL, method string, p *Policy) *Rejection

// requestChecks run in order; the URL is checked before the method.
var requestChecks = []check{checkURL, checkMethod}

// ValidateRequest runs the policy checks and returns the first rejection.
func ValidateRequest(rawURL, method string, p *Policy) *Rejection {
	for _, c := range requestChecks {
		if r := c(rawURL, method, p); r != nil {
			return r
		}
	}
	return nil
}

func checkURL(rawURL, _ string, p *Policy) *Rejection {
	if p.AllowsURL(rawURL) {
		return nil
	}
	return &Rejection{
		Kind:    RejectURL,
		Message: fmt.Sprintf("URL not allowed: %s. Must match pattern: %s", rawURL, p.Pattern()),
	}
}

func checkMethod(_, method string, p *Policy) *Rejection {
	method = strings.ToUpper(method)
	if p.AllowsMethod(method) {
		return nil
	}
	return &Rejection{
		Kind:    RejectMethod,
		Message: fmt.Sprintf("Method not allowed: %s. Allowed methods: %s", method, strings.Join(p.AllowedMethods(), ", ")),
	}
}
