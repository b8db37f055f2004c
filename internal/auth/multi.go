package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator tries several methods in order. A method that finds no
// credentials passes the request on; a method that rejects the credentials
// it found ends the attempt.
type MultiAuthenticator struct {
	methods []Authenticator
}

// NewMultiAuthenticator combines methods in the given order.
func NewMultiAuthenticator(methods ...Authenticator) *MultiAuthenticator {
	return &MultiAuthenticator{methods: methods}
}

// Authenticate returns the first successful result.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, m := range a.methods {
		info, err := m.Authenticate(r)
		switch {
		case err == nil:
			return info, nil
		case !errors.Is(err, ErrUnauthenticated):
			return nil, err
		}
	}
	return nil, ErrUnauthenticated
}

// Method returns AuthMethodMulti.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}
