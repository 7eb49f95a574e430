package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimited_DisabledReturnsNext(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	assert.Same(t, local, NewLimited(local, 0, 1))
}

func TestLimited_Contract(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	exerciseTransport(t, NewLimited(local, 1000, 10))
}

func TestLimited_WaitsForToken(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	limited := NewLimited(local, 0.5, 1)

	_, err = limited.Exists(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Exists(ctx, "a")
	assert.Error(t, err, "second call must not get a token within the deadline")
}
