package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/WizardKit/pkg/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServe(t *testing.T) {
	spec := config.DefaultServiceSpec()
	spec.Server.Addr = freeAddr(t)
	spec.Metrics.Enabled = true
	spec.Metrics.Addr = freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, spec) }()

	healthy := func(url string) func() bool {
		return func() bool {
			resp, err := http.Get(url)
			if err != nil {
				return false
			}
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}
	}
	require.Eventually(t, healthy("http://"+spec.Server.Addr+"/healthz"), 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, healthy("http://"+spec.Metrics.Addr+"/metrics"), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_CancelledBeforeStart(t *testing.T) {
	spec := config.DefaultServiceSpec()
	spec.Server.Addr = freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, spec))
}

func TestServe_BadStore(t *testing.T) {
	spec := config.DefaultServiceSpec()
	spec.Store = config.StoreSpec{Type: "mongo"}
	assert.Error(t, serve(context.Background(), spec))
}
