package httputil_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/WizardKit/pkg/httputil"
)

func TestDefaultConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10*time.Second, httputil.DefaultDraftStoreTimeout)
	assert.Equal(t, 10*time.Second, httputil.DefaultReadHeaderTimeout)
	assert.Equal(t, 5*time.Second, httputil.DefaultShutdownTimeout)
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"draft store timeout", httputil.DefaultDraftStoreTimeout},
		{"custom timeout", 5 * time.Second},
		{"zero timeout", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := httputil.NewHTTPClient(tt.timeout)
			require.NotNil(t, client)
			assert.Equal(t, tt.timeout, client.Timeout)
			assert.NotNil(t, client.Transport)
			assert.NotSame(t, http.DefaultTransport, client.Transport)
		})
	}
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	h := http.NewServeMux()
	srv := httputil.NewServer(":8080", h)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, h, srv.Handler)
	assert.Equal(t, httputil.DefaultReadHeaderTimeout, srv.ReadHeaderTimeout)
}
