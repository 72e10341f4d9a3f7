package transport

import (
	"net/http"
)

// Authenticator applies credentials to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth sends requests unauthenticated, which is how the public
// Nominatim instance is used.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// HeaderAuth sends the key in a header, optionally with a scheme prefix
// such as "Bearer".
type HeaderAuth struct {
	Header string
	Scheme string
	Key    string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) {
	header := a.Header
	if header == "" {
		header = "Authorization"
	}
	value := a.Key
	if a.Scheme != "" {
		value = a.Scheme + " " + a.Key
	}
	req.Header.Set(header, value)
}

// QueryAuth sends the key as a query parameter. Hosted Nominatim-compatible
// services take it as "key".
type QueryAuth struct {
	Param string
	Key   string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, a.Key)
	req.URL.RawQuery = query.Encode()
}

// KeyAuth returns a QueryAuth for key, or NoAuth when key is empty.
func KeyAuth(param, key string) Authenticator {
	if key == "" {
		return &NoAuth{}
	}
	if param == "" {
		param = "key"
	}
	return &QueryAuth{Param: param, Key: key}
}
