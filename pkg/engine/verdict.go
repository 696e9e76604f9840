package engine

import (
	"net/netip"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

// Method identifies which check authorized a request.
type Method int

const (
	// Unauthenticated means no check matched.
	Unauthenticated Method = iota

	// ClientIP means the caller's IP is on the allowlist. No user is bound.
	ClientIP

	// BasicAuth means the Authorization header matched a stored credential.
	BasicAuth

	// BypassTokenQuery means the token query parameter matched.
	BypassTokenQuery

	// BypassTokenHeader means the bypass token header matched.
	BypassTokenHeader

	// BypassTokenPath means the trailing path segment matched a token.
	BypassTokenPath
)

// String returns the method name used in log fields, metric labels, and the
// informational response header.
func (m Method) String() string {
	switch m {
	case ClientIP:
		return "client_ip"
	case BasicAuth:
		return "basic_auth"
	case BypassTokenQuery:
		return "bypass_token_query"
	case BypassTokenHeader:
		return "bypass_token_header"
	case BypassTokenPath:
		return "bypass_token_path"
	default:
		return "unauthenticated"
	}
}

// Verdict is the outcome of one authorization evaluation.
type Verdict struct {
	Method Method

	// User is set for identity-bearing methods (everything except
	// ClientIP, which authorizes the address alone).
	User credstore.Username
}

// Authenticated reports whether any check matched.
func (v Verdict) Authenticated() bool {
	return v.Method != Unauthenticated
}

// IdentityBearing reports whether the verdict resolved to a specific user.
func (v Verdict) IdentityBearing() bool {
	return v.User != ""
}

// Signals carries the request inputs the engine evaluates. Absent or
// malformed signals are zero values; they skip their check rather than
// erroring.
type Signals struct {
	// ClientIP is the caller's address from the trusted proxy header.
	// The zero Addr means no usable address was supplied.
	ClientIP netip.Addr

	// BasicAuthHeader is the raw Authorization header value.
	BasicAuthHeader string

	// QueryToken is a bypass token from the query string.
	QueryToken string

	// HeaderToken is a bypass token from the dedicated request header.
	HeaderToken string

	// PathTail is the unmatched trailing path of the request; its last
	// non-empty segment is a candidate bypass token.
	PathTail string
}
