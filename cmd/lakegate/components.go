package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/auth/apikey"
	"github.com/rhuss/lakegate/pkg/auth/jwt"
	"github.com/rhuss/lakegate/pkg/auth/noop"
	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/metering"
	"github.com/rhuss/lakegate/pkg/storage"
	"github.com/rhuss/lakegate/pkg/storage/memory"
	"github.com/rhuss/lakegate/pkg/storage/postgres"
)

// newStore opens the configured persistence and registers the known realms.
func newStore(ctx context.Context, cfg *config.Config) (storage.Persistence, error) {
	var (
		store storage.Persistence
		err   error
	)
	switch cfg.Storage.Type {
	case "memory":
		store, err = memory.New()
	case "postgres":
		store, err = postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Type, err)
	}

	for _, realm := range cfg.Realm.Known {
		if err := store.EnsureRealm(ctx, realm); err != nil {
			store.Close()
			return nil, fmt.Errorf("registering realm %q: %w", realm, err)
		}
	}
	slog.Info("storage ready", "type", cfg.Storage.Type, "realms", len(cfg.Realm.Known))
	return store, nil
}

// newAuthenticator builds the authenticator selected by auth.type.
func newAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	switch cfg.Auth.Type {
	case "none":
		slog.Warn("authentication disabled, every bearer token is accepted", "dev_principal", cfg.Auth.DevPrincipal)
		return &noop.Authenticator{Principal: cfg.Auth.DevPrincipal}, nil
	case "apikey":
		return newAPIKeyAuthenticator(cfg), nil
	case "jwt":
		return newJWTAuthenticator(cfg), nil
	case "chain":
		return &auth.Chain{Authenticators: []auth.Authenticator{
			newJWTAuthenticator(cfg),
			newAPIKeyAuthenticator(cfg),
		}}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}

func newAPIKeyAuthenticator(cfg *config.Config) *apikey.Authenticator {
	entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		entries = append(entries, apikey.RawKeyEntry{
			Key: k.Key,
			Principal: auth.Principal{
				Name:       k.Principal,
				Roles:      k.Roles,
				Properties: k.Properties,
			},
		})
	}
	return apikey.New(entries)
}

func newJWTAuthenticator(cfg *config.Config) *jwt.Authenticator {
	j := cfg.Auth.JWT
	return jwt.New(jwt.Config{
		Issuer:         j.Issuer,
		Audience:       j.Audience,
		JWKSURL:        j.JWKSURL,
		UserClaim:      j.UserClaim,
		RolesClaim:     j.RolesClaim,
		PropertyClaims: j.PropertyClaims,
		CacheTTL:       j.CacheTTL,

		MinRefreshInterval: j.MinRefreshInterval,
	})
}

// meteringConfig maps the metering config section onto the gate settings.
func meteringConfig(m config.MeteringConfig) metering.Config {
	return metering.Config{
		Enabled:               m.Enabled,
		APIBaseURL:            m.APIBaseURL,
		APIKey:                m.APIKey,
		Timeout:               m.Timeout(),
		MaxRetries:            m.MaxRetries,
		MinimumTokensRequired: m.MinimumTokensRequired,
		SystemPrincipal:       m.SystemPrincipal,
	}
}
