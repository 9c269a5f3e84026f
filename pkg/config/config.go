package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"smallbiznis-trustescrow/pkg/policy"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	Log        struct {
		Level      string `mapstructure:"LEVEL"`
		File       string `mapstructure:"FILE"`
		MaxSizeMB  int    `mapstructure:"MAX_SIZE_MB"`
		MaxBackups int    `mapstructure:"MAX_BACKUPS"`
		MaxAgeDays int    `mapstructure:"MAX_AGE_DAYS"`
	} `mapstructure:"LOG"`
	TLS struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Grpc struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"GRPC_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		Path           string `mapstructure:"PATH"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Mirror struct {
		Enable bool   `mapstructure:"ENABLE"`
		Stream string `mapstructure:"STREAM"`
		MaxLen int64  `mapstructure:"MAX_LEN"`
	} `mapstructure:"MIRROR"`
	Policy policy.Policy `mapstructure:"POLICY"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig, providePolicy))
var RemoteModule = fx.Module("remote.config", fx.Provide(LoadRemote, providePolicy))

// Options picks the remote key/value store when REMOTE_CONFIG_ADDR is set and
// the local config.yaml otherwise.
func Options() fx.Option {
	if _, ok := os.LookupEnv("REMOTE_CONFIG_ADDR"); ok {
		return RemoteModule
	}
	return Module
}

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func LoadConfig(p Params) *Config {
	config := viper.New()
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config", zap.Error(err))
		os.Exit(1)
	}

	cfg, err := Decode(config)
	if err != nil {
		zap.L().Error("failed to decode config", zap.Error(err))
		os.Exit(1)
	}

	applySecrets(p, cfg)
	return cfg
}

// LoadRemote reads the whole configuration document from consul or etcd.
// The policy is read once at startup; a changed policy takes effect on restart.
func LoadRemote(p Params) *Config {
	backend, addr, path := "consul", os.Getenv("REMOTE_CONFIG_ADDR"), "config/trustescrow"
	if v, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		backend = v
	}
	if v, ok := os.LookupEnv("REMOTE_CONFIG_PATH"); ok {
		path = v
	}

	config := viper.New()
	config.SetConfigType("yaml")
	if err := config.AddRemoteProvider(backend, addr, path); err != nil {
		zap.L().Error("invalid remote config provider", zap.String("backend", backend), zap.Error(err))
		os.Exit(1)
	}
	if err := config.ReadRemoteConfig(); err != nil {
		zap.L().Error("failed to read remote config", zap.String("addr", addr), zap.Error(err))
		os.Exit(1)
	}

	cfg, err := Decode(config)
	if err != nil {
		zap.L().Error("failed to decode remote config", zap.Error(err))
		os.Exit(1)
	}

	applySecrets(p, cfg)
	return cfg
}

func applySecrets(p Params, cfg *Config) {
	if p.Vault != nil {
		// START - Vault
		client := p.Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Info("Success Get Secret")

		get := func(key string) string {
			if val, ok := secret.Data.Data[key].(string); ok {
				return val
			}
			return ""
		}

		cfg.Database.User = get("postgres_user")
		cfg.Database.Password = get("postgres_password")
		cfg.Redis.Password = get("redis_password")
		// END - Vault
	}
}

// Decode unmarshals v on top of the built-in defaults and validates the
// engine policy section.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration usable for local development and tests.
func Default() *Config {
	cfg := &Config{
		AppEnv:  "development",
		AppName: "trustescrow",
		NodeID:  1,
		Policy:  policy.Default(),
	}
	cfg.Server.Addr = "8080"
	cfg.Grpc.Addr = "9090"
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = "trustescrow.db"
	cfg.Redis.Addr = "127.0.0.1:6379"
	cfg.Mirror.Stream = "escrow:mirror"
	cfg.Mirror.MaxLen = 100_000
	return cfg
}

func providePolicy(cfg *Config) policy.Policy {
	return cfg.Policy
}
