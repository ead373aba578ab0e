package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServeUntilDoneReturnsListenError(t *testing.T) {
	bindErr := errors.New("listen tcp 0.0.0.0:8080: bind: address already in use")
	done := make(chan error, 1)
	go func() {
		done <- serveUntilDone(context.Background(), func() error { return bindErr })
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, bindErr)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
}

func TestServeUntilDoneStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)
	cancel()
	err := serveUntilDone(ctx, func() error {
		<-block
		return nil
	})
	require.NoError(t, err)
}

func TestServeUntilDoneIgnoresServerClosed(t *testing.T) {
	require.NoError(t, serveUntilDone(context.Background(), func() error { return http.ErrServerClosed }))
}
