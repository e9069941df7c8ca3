package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "PLANMIGRATE"
	configFileName = "config"
	configFileType = "yaml"
	homeDirName    = ".planmigrate"
)

// Endpoint locates one project on a tracking server. Token is a personal
// access token and is only ever read from the config file or environment.
type Endpoint struct {
	URL     string        `mapstructure:"url"`
	Project string        `mapstructure:"project"`
	User    string        `mapstructure:"user"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SourceConfig struct {
	Endpoint          `mapstructure:",squash"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	PageSize          int     `mapstructure:"page_size"`
}

// RetryConfig is the read retry budget. Delay is constant between attempts.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// UserMapping maps a source display name to a destination display name.
// It is a list entry rather than a map key because keys are case folded.
type UserMapping struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
}

type MigrateConfig struct {
	Plans         []int         `mapstructure:"plans"`
	Iterations    []string      `mapstructure:"iterations"`
	Users         []UserMapping `mapstructure:"users"`
	FallbackUser  string        `mapstructure:"fallback_user"`
	WorkItemTypes []string      `mapstructure:"work_item_types"`
}

type Config struct {
	Source     SourceConfig  `mapstructure:"source"`
	Target     Endpoint      `mapstructure:"target"`
	Retry      RetryConfig   `mapstructure:"retry"`
	Migrate    MigrateConfig `mapstructure:"migrate"`
	DBPath     string        `mapstructure:"db_path"`
	ReportPath string        `mapstructure:"report_path"`
}

// Dir returns ~/.planmigrate, or a relative .planmigrate when the home
// directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return homeDirName
	}
	return filepath.Join(home, homeDirName)
}

func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Endpoint: Endpoint{Timeout: 100 * time.Second},
			PageSize: 200,
		},
		Target: Endpoint{Timeout: 100 * time.Second},
		Retry: RetryConfig{
			Attempts: 10,
			Delay:    50 * time.Millisecond,
		},
		Migrate: MigrateConfig{
			WorkItemTypes: []string{"Task"},
		},
		DBPath: filepath.Join(Dir(), "relations.db"),
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.project", d.Source.Project)
	v.SetDefault("source.user", d.Source.User)
	v.SetDefault("source.token", d.Source.Token)
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.requests_per_second", d.Source.RequestsPerSecond)
	v.SetDefault("source.page_size", d.Source.PageSize)
	v.SetDefault("target.url", d.Target.URL)
	v.SetDefault("target.project", d.Target.Project)
	v.SetDefault("target.user", d.Target.User)
	v.SetDefault("target.token", d.Target.Token)
	v.SetDefault("target.timeout", d.Target.Timeout)
	v.SetDefault("retry.attempts", d.Retry.Attempts)
	v.SetDefault("retry.delay", d.Retry.Delay)
	v.SetDefault("migrate.plans", d.Migrate.Plans)
	v.SetDefault("migrate.iterations", d.Migrate.Iterations)
	v.SetDefault("migrate.fallback_user", d.Migrate.FallbackUser)
	v.SetDefault("migrate.work_item_types", d.Migrate.WorkItemTypes)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("report_path", d.ReportPath)
}

// Load reads the configuration file at path, overlaid with PLANMIGRATE_*
// environment variables (source.token is PLANMIGRATE_SOURCE_TOKEN). With an
// empty path, config.yaml in Dir() is used when it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType(configFileType)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(Dir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.Source.Endpoint.validate("source")...)
	errs = append(errs, c.Target.validate("target")...)
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}
	if c.Source.PageSize < 1 {
		errs = append(errs, fmt.Errorf("source.page_size must be positive, got %d", c.Source.PageSize))
	}
	if c.Source.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("source.requests_per_second must not be negative"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	seen := make(map[string]bool)
	for i, u := range c.Migrate.Users {
		if u.Source == "" || u.Target == "" {
			errs = append(errs, fmt.Errorf("migrate.users[%d] needs both source and target", i))
			continue
		}
		if seen[u.Source] {
			errs = append(errs, fmt.Errorf("migrate.users maps %q more than once", u.Source))
		}
		seen[u.Source] = true
	}
	return errors.Join(errs...)
}

// ValidateSource checks only the settings needed to read from the source.
func (c *Config) ValidateSource() error {
	errs := c.Source.Endpoint.validate("source")
	if c.Source.PageSize < 1 {
		errs = append(errs, fmt.Errorf("source.page_size must be positive, got %d", c.Source.PageSize))
	}
	return errors.Join(errs...)
}

func (e Endpoint) validate(prefix string) []error {
	var errs []error
	if e.URL == "" {
		errs = append(errs, fmt.Errorf("%s.url is required", prefix))
	} else if u, err := url.Parse(e.URL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("%s.url %q is not an absolute URL", prefix, e.URL))
	}
	if e.Project == "" {
		errs = append(errs, fmt.Errorf("%s.project is required", prefix))
	}
	if e.Token == "" {
		errs = append(errs, fmt.Errorf("%s.token is required (set %s_%s_TOKEN)", prefix, EnvPrefix, strings.ToUpper(prefix)))
	}
	return errs
}

// UserMap returns the user mappings as a lookup table.
func (m MigrateConfig) UserMap() map[string]string {
	users := make(map[string]string, len(m.Users))
	for _, u := range m.Users {
		users[u.Source] = u.Target
	}
	return users
}
