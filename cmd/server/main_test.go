package main

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/auth"
	"github.com/vyrodovalexey/shoplist/internal/config"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level defaults to info", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			logger, err := initLogger(tt.level)

			// Assert
			if err != nil {
				t.Fatalf("initLogger() error = %v", err)
			}
			if logger == nil {
				t.Error("initLogger() returned nil logger")
			}
		})
	}
}

func TestCreateAuthenticator(t *testing.T) {
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name       string
		cfg        *config.Config
		wantNil    bool
		wantMethod auth.AuthMethod
		wantErr    bool
	}{
		{name: "none", cfg: &config.Config{AuthMode: "none"}, wantNil: true},
		{name: "empty mode", cfg: &config.Config{}, wantNil: true},
		{
			name:       "basic",
			cfg:        &config.Config{AuthMode: "basic", BasicAuthUsers: "alex:" + hash},
			wantMethod: auth.AuthMethodBasic,
		},
		{
			name:       "api key",
			cfg:        &config.Config{AuthMode: "apikey", APIKeys: "k1:kitchen"},
			wantMethod: auth.AuthMethodAPIKey,
		},
		{
			name:       "multi",
			cfg:        &config.Config{AuthMode: "multi", APIKeys: "k1:kitchen", BasicAuthUsers: "alex:" + hash},
			wantMethod: auth.AuthMethodMulti,
		},
		{name: "multi without credentials", cfg: &config.Config{AuthMode: "multi"}, wantErr: true},
		{name: "invalid api keys", cfg: &config.Config{AuthMode: "apikey", APIKeys: "nocolon"}, wantErr: true},
		{name: "unknown mode", cfg: &config.Config{AuthMode: "oidc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			authenticator, err := createAuthenticator(tt.cfg, zap.NewNop())

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Fatal("createAuthenticator() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("createAuthenticator() error = %v", err)
			}
			if tt.wantNil {
				if authenticator != nil {
					t.Errorf("createAuthenticator() = %v, want nil", authenticator)
				}
				return
			}
			if authenticator == nil {
				t.Fatal("createAuthenticator() returned nil")
			}
			if authenticator.Method() != tt.wantMethod {
				t.Errorf("Method() = %s, want %s", authenticator.Method(), tt.wantMethod)
			}
		})
	}
}

func TestCreateAuthenticator_UnknownModeSentinel(t *testing.T) {
	_, err := createAuthenticator(&config.Config{AuthMode: "mtls"}, zap.NewNop())

	if !errors.Is(err, auth.ErrUnknownMode) {
		t.Errorf("error = %v, want ErrUnknownMode", err)
	}
}
