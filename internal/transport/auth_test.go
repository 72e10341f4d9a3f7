package transport

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, raw string) *http.Request {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return &http.Request{URL: u, Header: make(http.Header)}
}

func TestNoAuth(t *testing.T) {
	req := newRequest(t, "https://nominatim.example/search?q=sinza")
	(&NoAuth{}).Apply(req)
	assert.Empty(t, req.Header)
	assert.Equal(t, "q=sinza", req.URL.RawQuery)
}

func TestHeaderAuth(t *testing.T) {
	t.Run("bearer", func(t *testing.T) {
		req := newRequest(t, "https://geo.example/search")
		(&HeaderAuth{Scheme: "Bearer", Key: "secret"}).Apply(req)
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	})

	t.Run("custom header", func(t *testing.T) {
		req := newRequest(t, "https://geo.example/search")
		(&HeaderAuth{Header: "x-api-key", Key: "secret"}).Apply(req)
		assert.Equal(t, "secret", req.Header.Get("x-api-key"))
		assert.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestQueryAuth(t *testing.T) {
	req := newRequest(t, "https://geo.example/search?q=kariakoo&format=json")
	(&QueryAuth{Param: "key", Key: "secret"}).Apply(req)

	q := req.URL.Query()
	assert.Equal(t, "secret", q.Get("key"))
	assert.Equal(t, "kariakoo", q.Get("q"))
	assert.Equal(t, "json", q.Get("format"))

	// nil URL is ignored
	(&QueryAuth{Param: "key", Key: "secret"}).Apply(&http.Request{})
}

func TestKeyAuth(t *testing.T) {
	assert.IsType(t, &NoAuth{}, KeyAuth("key", ""))

	a := KeyAuth("", "secret")
	require.IsType(t, &QueryAuth{}, a)
	assert.Equal(t, "key", a.(*QueryAuth).Param)
}
