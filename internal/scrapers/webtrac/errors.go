package webtrac

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrTimeout         = errors.New("request timed out")
	ErrUnreachable     = errors.New("site unreachable")
	ErrChallengeFailed = errors.New("bot challenge not cleared")
	ErrBlocked         = errors.New("blocked by site")

	// ErrParse is returned when a response is not an html document at all.
	ErrParse = errors.New("unparseable document")
)

type FailureKind int

const (
	FailureTimeout FailureKind = iota + 1
	FailureUnreachable
	FailureChallengeFailed
	FailureBlocked
)

func (k FailureKind) sentinel() error {
	switch k {
	case FailureTimeout:
		return ErrTimeout
	case FailureChallengeFailed:
		return ErrChallengeFailed
	case FailureBlocked:
		return ErrBlocked
	}
	return ErrUnreachable
}

func (k FailureKind) String() string {
	return k.sentinel().Error()
}

// FetchError describes a failed request against the reservation site.
type FetchError struct {
	Kind FailureKind
	// Op is what the session was doing, ex. "warm-up" or "page 2".
	Op string
	// Status is the http status code, 0 when no response was received.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("webtrac: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// IsNetworkFailure reports timeouts and unreachable hosts, these are worth one retry.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable)
}

// IsChallengeFailure reports bot-mitigation failures, these must not be retried
// within the same run.
func IsChallengeFailure(err error) bool {
	return errors.Is(err, ErrChallengeFailed) || errors.Is(err, ErrBlocked)
}

func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := FailureUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FailureTimeout
	}
	return &FetchError{Kind: kind, Op: op, Err: err}
}

var challengeMarkers = []string{
	"cf-chl",
	"challenge-platform",
	"just a moment...",
	"attention required! | cloudflare",
}

func looksLikeChallenge(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	// challenge pages are small, a full search page mentioning cloudflare in a
	// script tag should not count
	if len(body) > 64*1024 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// responseError classifies a response that did arrive, nil means the response is usable.
func responseError(op string, status int, body []byte) error {
	switch {
	case status == 403 && looksLikeChallenge(body):
		return &FetchError{Kind: FailureChallengeFailed, Op: op, Status: status}
	case status == 403:
		return &FetchError{Kind: FailureBlocked, Op: op, Status: status}
	case status == 429 || (status == 503 && looksLikeChallenge(body)):
		return &FetchError{Kind: FailureChallengeFailed, Op: op, Status: status}
	case status >= 400:
		return &FetchError{Kind: FailureUnreachable, Op: op, Status: status}
	case looksLikeChallenge(body):
		return &FetchError{Kind: FailureChallengeFailed, Op: op, Status: status}
	}
	return nil
}
