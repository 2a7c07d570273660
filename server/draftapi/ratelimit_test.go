package draftapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	l := newClientLimiter(1, 1, time.Minute)

	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now))
	assert.True(t, l.allow("b", now), "clients have separate buckets")
	assert.True(t, l.allow("a", now.Add(time.Second)), "bucket refills")

	l.evict(now.Add(30 * time.Second))
	assert.Equal(t, 2, l.size())
	l.evict(now.Add(2 * time.Minute))
	assert.Equal(t, 0, l.size())
}

func TestClientLimiter_MinimumBurst(t *testing.T) {
	l := newClientLimiter(1, 0, time.Minute)
	assert.True(t, l.allow("a", time.Unix(0, 0)))
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/drafts", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", clientKey(r))

	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientKey(r))
}
