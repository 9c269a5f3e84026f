// Package secretmanager provides the Vault client that config.LoadConfig
// reads database and redis credentials from.
package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
)

var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// Enabled reports whether a Vault address is configured in the environment.
func Enabled() bool {
	return os.Getenv("VAULT_ADDR") != ""
}

// Options returns Module when Vault is configured and nothing otherwise.
func Options() fx.Option {
	if !Enabled() {
		return fx.Options()
	}
	return Module
}

func ProvideVault() (*vault.Client, error) {
	return vault.New(
		vault.WithEnvironment(),
	)
}
