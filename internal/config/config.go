package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("devdash version %s, commit %s, built at %s", version, commit, date)
}

// ErrInvalidProvider indicates an unsupported identity provider was configured
var ErrInvalidProvider = errors.New("unsupported identity provider")

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Exchange ExchangeConfig `mapstructure:"exchange" yaml:"exchange"`
	Callback CallbackConfig `mapstructure:"callback" yaml:"callback"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Routes   RoutesConfig   `mapstructure:"routes" yaml:"routes"`
	Logout   LogoutConfig   `mapstructure:"logout" yaml:"logout"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port" yaml:"port"`
	Host    string        `mapstructure:"host" yaml:"host"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" yaml:"level"`
	Format            string `mapstructure:"format" yaml:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace" yaml:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path" yaml:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file" yaml:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console" yaml:"disable_console"`
}

type ProviderName string

const (
	ProviderGitHub ProviderName = "github"
	ProviderGoogle ProviderName = "google"
)

type ProviderConfig struct {
	Name         ProviderName `mapstructure:"name" yaml:"name"`
	ClientID     string       `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string       `mapstructure:"client_secret" yaml:"-"`
	RedirectURL  string       `mapstructure:"redirect_url" yaml:"redirect_url"`
	Scopes       []string     `mapstructure:"scopes" yaml:"scopes"`
	// AuthURL, TokenURL and APIBaseURL override the provider defaults (GitHub Enterprise, tests).
	AuthURL    string `mapstructure:"auth_url" yaml:"auth_url,omitempty"`
	TokenURL   string `mapstructure:"token_url" yaml:"token_url,omitempty"`
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url,omitempty"`
	IssuerURL  string `mapstructure:"issuer_url" yaml:"issuer_url,omitempty"` // google only
	// RevokeURL overrides the remote sign-out endpoint; empty means the provider default.
	RevokeURL string        `mapstructure:"revoke_url" yaml:"revoke_url,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ExchangeMode string

const (
	ExchangeModeProvider ExchangeMode = "provider"
	ExchangeModeBackend  ExchangeMode = "backend"
)

type ExchangeConfig struct {
	Mode       ExchangeMode `mapstructure:"mode" yaml:"mode"`
	BackendURL string       `mapstructure:"backend_url" yaml:"backend_url,omitempty"`
}

type CallbackConfig struct {
	Watchdog time.Duration `mapstructure:"watchdog" yaml:"watchdog"`
}

type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
)

type SessionConfig struct {
	Backend StorageBackend `mapstructure:"backend" yaml:"backend"`
	Path    string         `mapstructure:"path" yaml:"path"`
}

type RoutesConfig struct {
	Login     string `mapstructure:"login" yaml:"login"`
	Dashboard string `mapstructure:"dashboard" yaml:"dashboard"`
}

type LogoutConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CallbackPath returns the path component of the configured redirect URL.
func (p ProviderConfig) CallbackPath() string {
	u, err := url.Parse(p.RedirectURL)
	if err != nil || u.Path == "" {
		return "/auth/callback"
	}
	return u.Path
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("provider.name", string(ProviderGitHub), "Identity provider (github|google)")
	fs.String("provider.client_id", "", "OAuth client identifier")
	fs.String("session.backend", string(StorageFile), "Session persistence backend (file|sqlite|memory)")
	fs.String("logging.level", "info", "Log level")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.timeout", constants.DefaultHTTPTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.disable_stacktrace", true)

	v.SetDefault("provider.name", string(ProviderGitHub))
	v.SetDefault("provider.redirect_url", fmt.Sprintf("http://localhost:%d/auth/callback", constants.DefaultPort))
	v.SetDefault("provider.timeout", constants.DefaultHTTPTimeout)

	v.SetDefault("exchange.mode", string(ExchangeModeProvider))
	v.SetDefault("callback.watchdog", constants.DefaultWatchdog)

	v.SetDefault("session.backend", string(StorageFile))
	v.SetDefault("session.path", defaultSessionPath())

	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.dashboard", "/dashboard")

	v.SetDefault("logout.timeout", constants.DefaultLogoutTimeout)
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "devdash-session.json")
	}
	return filepath.Join(home, ".config", "devdash", "session.json")
}

// Load reads configuration from the config file, environment and bound flags.
// configFile may be empty, in which case the default search paths are used.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEVDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "devdash"))
		}
		v.AddConfigPath("/etc/devdash")
	}

	if err := v.ReadInConfig(); err != nil {
		// Defaults cover everything local commands need, so no config file is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and fills provider specific defaults.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderGitHub, ProviderGoogle:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Provider.Name)
	}

	if _, err := url.ParseRequestURI(c.Provider.RedirectURL); err != nil {
		return fmt.Errorf("provider.redirect_url is invalid: %w", err)
	}

	switch c.Exchange.Mode {
	case ExchangeModeProvider, ExchangeModeBackend:
	default:
		return fmt.Errorf("unsupported exchange mode: %q", c.Exchange.Mode)
	}

	switch c.Session.Backend {
	case StorageFile, StorageSQLite:
		if c.Session.Path == "" {
			return fmt.Errorf("session.path is required for the %s backend", c.Session.Backend)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported session backend: %q", c.Session.Backend)
	}

	if c.Callback.Watchdog <= 0 {
		return fmt.Errorf("callback.watchdog must be positive")
	}
	if c.Routes.Login == "" || c.Routes.Dashboard == "" {
		return fmt.Errorf("routes.login and routes.dashboard are required")
	}
	return nil
}

// ValidateSignIn checks the settings only needed to start a sign-in. Commands that
// read or clear the local session do not call it.
func (c *Config) ValidateSignIn() error {
	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider.client_id is required, please adjust the config or set DEVDASH_PROVIDER_CLIENT_ID environment variable")
	}
	if c.Exchange.Mode == ExchangeModeBackend && c.Exchange.BackendURL == "" {
		return fmt.Errorf("exchange.backend_url is required in backend mode, please adjust the config or set DEVDASH_EXCHANGE_BACKEND_URL environment variable")
	}
	return nil
}
