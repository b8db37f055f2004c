// Package auth authenticates household members calling the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod names how a request was authenticated.
type AuthMethod string

// Authentication methods.
const (
	AuthMethodNone   AuthMethod = "none"
	AuthMethodBasic  AuthMethod = "basic"
	AuthMethodAPIKey AuthMethod = "apikey"
	AuthMethodMulti  AuthMethod = "multi"
)

// AuthInfo identifies the household member behind a request.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
}

// Authenticator validates a request and returns who made it.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMode        = errors.New("unknown auth mode")
)

type contextKey string

const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// New builds the authenticator for mode. It returns nil for "none" or an
// empty mode. Multi mode combines every method that has credentials,
// trying API keys before basic auth.
func New(mode, basicUsers, apiKeys string) (Authenticator, error) {
	switch AuthMethod(mode) {
	case "", AuthMethodNone:
		return nil, nil
	case AuthMethodBasic:
		return NewBasicAuthenticator(basicUsers)
	case AuthMethodAPIKey:
		return NewAPIKeyAuthenticator(apiKeys)
	case AuthMethodMulti:
		var methods []Authenticator
		if strings.TrimSpace(apiKeys) != "" {
			a, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			methods = append(methods, a)
		}
		if strings.TrimSpace(basicUsers) != "" {
			a, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			methods = append(methods, a)
		}
		if len(methods) == 0 {
			return nil, fmt.Errorf("multi auth: no credentials configured")
		}
		return NewMultiAuthenticator(methods...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// parsePairs splits a "left:right,left:right" list. Only the first colon of
// an entry separates the two halves; blank entries are skipped.
func parsePairs(kind, config string) (map[string]string, error) {
	config = strings.TrimSpace(config)
	if config == "" {
		return nil, fmt.Errorf("%s: config must not be empty", kind)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(config, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("%s: entry %q has no colon", kind, entry)
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s: entry halves must not be empty", kind)
		}
		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", kind)
	}
	return pairs, nil
}
