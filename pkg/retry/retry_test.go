package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

func fastPolicy() Policy {
	return Policy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDoRetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return errors.Wrap(relayertypes.ErrProofMalformed, "bad ops")
	})
	require.ErrorIs(t, err, relayertypes.ErrProofMalformed)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	// maxRetries=3 means one initial attempt plus three retries.
	assert.Equal(t, 4, calls)
}

func TestGetReturnsValue(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Get(context.Background(), fastPolicy(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("indexer lag")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPermanent(relayertypes.ErrTxFailed))
	assert.True(t, IsPermanent(errors.Wrap(relayertypes.ErrNotFound, "record")))
	assert.True(t, IsPermanent(context.Canceled))
	assert.False(t, IsPermanent(errors.New("rpc timeout")))
	assert.False(t, IsPermanent(relayertypes.ErrStalled))
	assert.False(t, IsPermanent(relayertypes.ErrTimeout))
}
