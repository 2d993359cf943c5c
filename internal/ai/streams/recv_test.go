package streams

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvReturnsItems(t *testing.T) {
	sr := schema.StreamReaderFromArray([]string{"a", "b"})
	ctx := context.Background()

	v, err := Recv(ctx, sr)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	v, err = Recv(ctx, sr)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	_, err = Recv(ctx, sr)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestRecvStopsOnCancel(t *testing.T) {
	sr, sw := schema.Pipe[[]byte](1)
	defer sw.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Recv(ctx, sr)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("recv did not return after cancel")
	}
}

func TestRecvCancelledBeforeCall(t *testing.T) {
	sr, sw := schema.Pipe[int](1)
	sw.Send(1, nil)
	sw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Recv(ctx, sr)
	assert.ErrorIs(t, err, context.Canceled)
}
