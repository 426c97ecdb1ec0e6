// Package retry applies the relayer's network retry policy: capped exponential
// backoff for transient failures, immediate surfacing of permanent ones.
package retry

import (
	"context"
	stderrors "errors"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

// Policy is the retry policy applied to external calls.
type Policy struct {
	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy matches the network defaults: 3 retries, 1s initial backoff doubling
// up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// permanent sentinels are never retried: retrying cannot change their outcome.
var permanent = []error{
	relayertypes.ErrUnsupported,
	relayertypes.ErrProofMalformed,
	relayertypes.ErrRevisionMismatch,
	relayertypes.ErrClientDiverged,
	relayertypes.ErrConnectionNotOpen,
	relayertypes.ErrChainMismatch,
	relayertypes.ErrTxFailed,
	relayertypes.ErrNotFound,
	relayertypes.ErrConfig,
	relayertypes.ErrEventMalformed,
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return true
	}
	for _, sentinel := range permanent {
		if stderrors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Do runs fn under the policy, honoring ctx cancellation. The last error is returned
// once retries are exhausted or a permanent error surfaces.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	return retrygo.Do(
		fn,
		retrygo.Context(ctx),
		retrygo.Attempts(p.MaxRetries+1),
		retrygo.Delay(p.InitialBackoff),
		retrygo.MaxDelay(p.MaxBackoff),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.RetryIf(func(err error) bool { return !IsPermanent(err) }),
		retrygo.LastErrorOnly(true),
	)
}

// Get runs fn under the policy and returns its value.
func Get[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	return retrygo.DoWithData(
		fn,
		retrygo.Context(ctx),
		retrygo.Attempts(p.MaxRetries+1),
		retrygo.Delay(p.InitialBackoff),
		retrygo.MaxDelay(p.MaxBackoff),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.RetryIf(func(err error) bool { return !IsPermanent(err) }),
		retrygo.LastErrorOnly(true),
	)
}
