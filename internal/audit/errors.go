package audit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/geoscope-ai/geoscope/internal/analyzer"
)

// Sentinel errors surfaced at the session boundary.
var (
	ErrSessionNotFound = errors.New("audit session not found")
	ErrNoPages         = errors.New("page list is empty")
	ErrTooManyPages    = errors.New("page list exceeds the maximum page count")
)

// PageErrorKind is the fixed taxonomy for terminal page-level failures.
type PageErrorKind string

const (
	ErrKindTimeout      PageErrorKind = "timeout"
	ErrKindNetwork      PageErrorKind = "network"
	ErrKindAccessDenied PageErrorKind = "access_denied"
	ErrKindNotFound     PageErrorKind = "not_found"
	ErrKindRateLimited  PageErrorKind = "rate_limited"
	ErrKindOther        PageErrorKind = "other"
)

// ClassifyPageError maps an analysis failure onto the taxonomy and renders
// the message stored in the failing PageResult.
func ClassifyPageError(err error) (PageErrorKind, string) {
	if err == nil {
		return ErrKindOther, ""
	}

	kind := classify(err)
	return kind, fmt.Sprintf("%s: %v", kind, err)
}

func classify(err error) PageErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}

	var reqErr *analyzer.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrKindAccessDenied
		case http.StatusNotFound, http.StatusGone:
			return ErrKindNotFound
		case http.StatusTooManyRequests:
			return ErrKindRateLimited
		}
		if reqErr.StatusCode >= 500 {
			return ErrKindNetwork
		}
		return ErrKindOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrKindTimeout
		}
		return ErrKindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrKindTimeout
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "network"):
		return ErrKindNetwork
	case strings.Contains(msg, "forbidden") || strings.Contains(msg, "access denied"):
		return ErrKindAccessDenied
	case strings.Contains(msg, "not found"):
		return ErrKindNotFound
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "too many requests"):
		return ErrKindRateLimited
	default:
		return ErrKindOther
	}
}
