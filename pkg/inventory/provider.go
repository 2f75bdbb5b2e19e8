// Package inventory provides topology snapshot providers: the list of
// monitored OOB interfaces with their expected switch ports, and the
// list of switches whose FDB tables are collected each cycle.
package inventory

import (
	"context"
	"fmt"
	"os"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
)

// Provider fetches the topology snapshot from the source of truth.
type Provider interface {
	// FetchInterfaces returns all monitored OOB interfaces with a MAC
	// and a cabled expected endpoint. Interfaces absent from the result
	// are retired by the engine.
	FetchInterfaces(ctx context.Context) ([]model.ManagedInterface, error)

	// FetchSwitches returns the switches to collect FDB tables from.
	FetchSwitches(ctx context.Context) ([]model.Switch, error)
}

// New builds the provider selected by the configuration. The token is
// only consulted for the netbox kind; callers resolve it via
// ResolveToken (or a prompt) first.
func New(cfg *spec.InventorySpec, token string) (Provider, error) {
	switch cfg.Kind {
	case "netbox":
		if token == "" {
			return nil, fmt.Errorf("inventory: netbox provider needs an API token")
		}
		return NewNetBoxProvider(cfg, token), nil
	case "static":
		return NewStaticProvider(cfg.StaticFile), nil
	default:
		return nil, fmt.Errorf("unknown inventory kind %q", cfg.Kind)
	}
}

// ResolveToken returns the NetBox API token from the config or its
// environment variable. An empty result is an error for the netbox kind.
func ResolveToken(cfg *spec.InventorySpec) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenEnv != "" {
		if v := os.Getenv(cfg.TokenEnv); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("inventory token environment variable %s is not set", cfg.TokenEnv)
	}
	return "", fmt.Errorf("inventory: no token or token_env configured")
}
