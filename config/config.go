/*
Package config holds the server configuration.

SOURCES (highest precedence first):
  1. Command-line flags        --port=9090
  2. Environment variables     CALLTRACKER_PORT=9090
  3. JSON configuration file   --config=./calltracker.json
  4. Defaults below

STORE DRIVERS:
  sqlite:   documents and settings in local SQLite files (single machine)
  postgres: shared documents in Postgres, settings in local SQLite
  memory:   documents in memory, settings in local SQLite (dev/demo)

  Timer settings stay in SQLite unless --settings-store=postgres, which
  keeps them in the settings table of the --postgres-dsn database.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the server configuration.
type Config struct {
	ConfigFile kong.ConfigFlag `name:"config" help:"JSON configuration file." type:"path"`

	Port        int      `help:"HTTP server port." default:"8080" env:"CALLTRACKER_PORT"`
	Store       string   `help:"Document store driver." enum:"sqlite,postgres,memory" default:"sqlite" env:"CALLTRACKER_STORE"`
	DB          string   `help:"SQLite database for shared documents (store=sqlite). Use :memory: for an in-memory database." default:"calltracker.db" env:"CALLTRACKER_DB"`
	PostgresDSN string   `name:"postgres-dsn" help:"Postgres connection string (store=postgres)." env:"CALLTRACKER_POSTGRES_DSN"`
	SettingsDB  string   `name:"settings-db" help:"SQLite database for local timer settings." default:"settings.db" env:"CALLTRACKER_SETTINGS_DB"`
	Timezone    string   `help:"IANA time zone that decides calendar days." default:"Local" env:"CALLTRACKER_TIMEZONE"`
	Anchor      string   `help:"First day of a biweekly pay period (YYYY-MM-DD)." default:"2026-02-21" env:"CALLTRACKER_ANCHOR"`
	DefaultRate string   `name:"default-rate" help:"Per-minute rate used until one is configured." default:"0.11" env:"CALLTRACKER_DEFAULT_RATE"`
	CORSOrigins []string `name:"cors-origins" help:"Allowed CORS origins." default:"http://localhost:5173,http://localhost:8080" env:"CALLTRACKER_CORS_ORIGINS"`

	SettingsStore string `name:"settings-store" help:"Timer settings driver (postgres uses --postgres-dsn)." enum:"sqlite,postgres" default:"sqlite" env:"CALLTRACKER_SETTINGS_STORE"`

	RolloverInterval time.Duration `name:"rollover-interval" help:"How often to check for a new calendar day." default:"1m" env:"CALLTRACKER_ROLLOVER_INTERVAL"`
	StatusWindow     time.Duration `name:"status-window" help:"How long the last sync status stays visible." default:"3s" env:"CALLTRACKER_STATUS_WINDOW"`
	IdentityWait     time.Duration `name:"identity-wait" help:"How long remote writes wait for sign-in." default:"10s" env:"CALLTRACKER_IDENTITY_WAIT"`

	LogDir string `name:"log-dir" help:"Directory for rotating log files." default:"logs" env:"CALLTRACKER_LOG_DIR"`
	Debug  bool   `help:"Verbose logging, mirrored to stderr." env:"CALLTRACKER_DEBUG"`
}

// Load parses args (without the program name) into a Config.
func Load(args []string, options ...kong.Option) (*Config, error) {
	var cfg Config
	options = append([]kong.Option{
		kong.Name("calltracker-server"),
		kong.Description("Call earnings tracker server"),
		kong.Configuration(kong.JSON),
	}, options...)

	parser, err := kong.New(&cfg, options...)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &generic.ValidationError{Field: "port", Value: fmt.Sprint(c.Port), Reason: "must be 1-65535"}
	}
	if c.Store == StorePostgres && strings.TrimSpace(c.PostgresDSN) == "" {
		return &generic.ValidationError{Field: "postgres-dsn", Reason: "required when store=postgres"}
	}
	if c.SettingsStore == StorePostgres && strings.TrimSpace(c.PostgresDSN) == "" {
		return &generic.ValidationError{Field: "postgres-dsn", Reason: "required when settings-store=postgres"}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.AnchorDate(); err != nil {
		return err
	}
	if _, err := c.Rate(); err != nil {
		return err
	}
	if c.RolloverInterval <= 0 {
		return &generic.ValidationError{Field: "rollover-interval", Value: c.RolloverInterval.String(), Reason: "must be positive"}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &generic.ValidationError{Field: "timezone", Value: c.Timezone, Reason: err.Error()}
	}
	return loc, nil
}

// AnchorDate parses Anchor.
func (c *Config) AnchorDate() (generic.TimePoint, error) {
	return generic.ParseDate(c.Anchor)
}

// Rate parses DefaultRate.
func (c *Config) Rate() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.DefaultRate)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &generic.ValidationError{Field: "default-rate", Value: c.DefaultRate, Reason: "must be a positive number"}
	}
	return d, nil
}
