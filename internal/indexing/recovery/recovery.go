// Package recovery classifies block failures and performs the bookkeeping that
// defers their retry to a later scheduling tick.
package recovery

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/vietddude/tronwatch/internal/infra/rpc"
)

// Tag is the root cause of a block failure.
type Tag string

const (
	TagRateLimit         Tag = "rate_limit"
	TagTLS               Tag = "tls"
	TagConnectionRefused Tag = "connection_refused"
	TagTimeout           Tag = "timeout"
	TagGeneric           Tag = "generic"
)

// Cause is a classified failure with a message suitable for operators.
type Cause struct {
	Tag     Tag
	Message string
}

// Transient reports whether the failure came from the upstream side.
func (c Cause) Transient() bool {
	return c.Tag != TagGeneric
}

// Classify maps err to a root cause. Typed errors are checked first, then the
// error text for upstreams that only report a string.
func Classify(err error) Cause {
	if err == nil {
		return Cause{Tag: TagGeneric, Message: "unknown error"}
	}
	tag := classifyTyped(err)
	if tag == "" {
		tag = classifyText(err.Error())
	}
	return Cause{Tag: tag, Message: describe(tag, err)}
}

func classifyTyped(err error) Tag {
	var httpErr *rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return TagRateLimit
	}

	var (
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr), errors.As(err, &alertErr), errors.As(err, &verifyErr),
		errors.As(err, &unknownCA), errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return TagTLS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return TagConnectionRefused
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TagTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TagTimeout
	}
	return ""
}

func classifyText(msg string) Tag {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, "429", "rate limit", "too many requests"):
		return TagRateLimit
	case containsAny(msg, "tls", "ssl", "cipher", "handshake", "certificate"):
		return TagTLS
	case containsAny(msg, "connection refused", "econnrefused"):
		return TagConnectionRefused
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return TagTimeout
	}
	return TagGeneric
}

func describe(tag Tag, err error) string {
	switch tag {
	case TagRateLimit:
		return fmt.Sprintf("upstream rate limit exceeded: %v", err)
	case TagTLS:
		return fmt.Sprintf("TLS negotiation with upstream failed: %v", err)
	case TagConnectionRefused:
		return fmt.Sprintf("upstream refused the connection: %v", err)
	case TagTimeout:
		return fmt.Sprintf("upstream request timed out: %v", err)
	}
	return err.Error()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
