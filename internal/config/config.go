package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	HTTPAddr string `env:"SIGNOUT_HTTP_ADDR" envDefault:":8080"`
	// GRPCAddr empty disables the gRPC health listener.
	GRPCAddr string `env:"SIGNOUT_GRPC_ADDR"`

	Env string `env:"SIGNOUT_ENV" envDefault:"dev"` // "dev" | "prod"

	// Storage
	Store       string `env:"SIGNOUT_STORE" envDefault:"sqlite"`
	DBPath      string `env:"SIGNOUT_DB_PATH" envDefault:"./data/signout.db"`
	DatabaseURL string `env:"SIGNOUT_DATABASE_URL"`

	// RosterFile, when set, replaces the staff table as the roster source.
	RosterFile string `env:"SIGNOUT_ROSTER_FILE"`

	AdminPassword string `env:"SIGNOUT_ADMIN_PASSWORD"`

	Vehicles        []string `env:"SIGNOUT_VEHICLES" envSeparator:","`
	PeopleReasons   []string `env:"SIGNOUT_PEOPLE_REASONS" envSeparator:","`
	VehiclePurposes []string `env:"SIGNOUT_VEHICLE_PURPOSES" envSeparator:","`

	Timezone string `env:"SIGNOUT_TIMEZONE" envDefault:"America/New_York"`

	LedgerTTL time.Duration `env:"SIGNOUT_LEDGER_TTL" envDefault:"5s"`
	RosterTTL time.Duration `env:"SIGNOUT_ROSTER_TTL" envDefault:"60s"`

	RequirePassengerCodes bool `env:"SIGNOUT_REQUIRE_PASSENGER_CODES"`

	NATSURL string `env:"SIGNOUT_NATS_URL"`

	// Backups run only with a positive interval and a bucket.
	BackupInterval   time.Duration `env:"SIGNOUT_BACKUP_INTERVAL"`
	BackupS3Bucket   string        `env:"SIGNOUT_BACKUP_S3_BUCKET"`
	BackupS3Region   string        `env:"SIGNOUT_BACKUP_S3_REGION" envDefault:"us-east-1"`
	BackupS3Endpoint string        `env:"SIGNOUT_BACKUP_S3_ENDPOINT"`
	BackupS3Prefix   string        `env:"SIGNOUT_BACKUP_S3_PREFIX" envDefault:"signout"`

	OTelEndpoint string `env:"SIGNOUT_OTEL_ENDPOINT"`
}

// FromEnv parses the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize()
}

// FromMap parses vars as if they were the environment.  Tests and the CLI
// use it to layer flags over the environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return Config{}, fmt.Errorf("SIGNOUT_STORE=postgres requires SIGNOUT_DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown SIGNOUT_STORE %q", c.Store)
	}

	c.Vehicles = trimList(c.Vehicles)
	c.PeopleReasons = trimList(c.PeopleReasons)
	c.VehiclePurposes = trimList(c.VehiclePurposes)

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return Config{}, fmt.Errorf("SIGNOUT_TIMEZONE: %w", err)
	}
	return c, nil
}

// Location is the loaded Timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDev reports whether dev-only behavior such as seeding is on.
func (c Config) IsDev() bool { return c.Env == "dev" }

// BackupsEnabled reports whether the backup scheduler should run.
func (c Config) BackupsEnabled() bool {
	return c.BackupInterval > 0 && c.BackupS3Bucket != ""
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
