package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
)

// Failure classes surfaced by the generation service boundary. Callers decide
// retry behavior with errors.Is against these sentinels.
var (
	ErrRateLimited      = errors.New("generation service rate limited")
	ErrAuth             = errors.New("generation service authentication failed")
	ErrMalformedRequest = errors.New("malformed generation request")
	ErrTimeout          = errors.New("generation call timed out")
)

// Classify maps a raw client error onto the boundary's error taxonomy. The
// original error stays wrapped so its message is not lost.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429:
			return errors.Join(ErrRateLimited, err)
		case 401, 403:
			return errors.Join(ErrAuth, err)
		case 400, 404, 422:
			return errors.Join(ErrMalformedRequest, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}

	// Providers are not uniform about surfacing quota errors as typed 429s;
	// fall back to message sniffing the way the upstream SDKs themselves do.
	msg := err.Error()
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests", "ResourceExhausted"} {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrRateLimited, err)
		}
	}

	return err
}

// Retryable reports whether a classified error warrants backoff-retry.
// Only rate-limit and timeout failures qualify; everything else propagates.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}
