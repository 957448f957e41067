/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/modelsync/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MODELSYNC_BACKEND.
const EnvPrefix = "MODELSYNC"

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendDynamoDB = "dynamodb"
)

// Config selects and configures the store behind a client.
type Config struct {
	Backend  string         `yaml:"backend"`
	Mongo    MongoConfig    `yaml:"mongo"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Log      LogConfig      `yaml:"log"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type DynamoDBConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"accessKey"`
	SecretKey      string `yaml:"secretKey"`
	Endpoint       string `yaml:"endpoint"`
	TablePrefix    string `yaml:"tablePrefix"`
	KeyAttribute   string `yaml:"keyAttribute"`
	ConsistentRead bool   `yaml:"consistentRead"`
}

// DispatchConfig tunes the read/write scheduler.
type DispatchConfig struct {
	// MetricsPrefix names the scheduler metrics.
	MetricsPrefix string `yaml:"metricsPrefix"`
	// CloseTimeout bounds how long Close waits for queued work.
	CloseTimeout time.Duration `yaml:"closeTimeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a configuration for the in-memory backend.
func Default() Config {
	return Config{
		Backend: BackendMemory,
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "modelsync",
			ConnectTimeout: 10 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Region:       "us-east-1",
			KeyAttribute: "_id",
		},
		Dispatch: DispatchConfig{
			MetricsPrefix: "modelsync_dispatch",
			CloseTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty), any .env file in the working directory and finally
// MODELSYNC_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BACKEND":                 &c.Backend,
		"MONGO_URI":               &c.Mongo.URI,
		"MONGO_DATABASE":          &c.Mongo.Database,
		"DYNAMODB_REGION":         &c.DynamoDB.Region,
		"DYNAMODB_ACCESS_KEY":     &c.DynamoDB.AccessKey,
		"DYNAMODB_SECRET_KEY":     &c.DynamoDB.SecretKey,
		"DYNAMODB_ENDPOINT":       &c.DynamoDB.Endpoint,
		"DYNAMODB_TABLE_PREFIX":   &c.DynamoDB.TablePrefix,
		"DYNAMODB_KEY_ATTRIBUTE":  &c.DynamoDB.KeyAttribute,
		"DISPATCH_METRICS_PREFIX": &c.Dispatch.MetricsPrefix,
		"LOG_LEVEL":               &c.Log.Level,
		"LOG_FORMAT":              &c.Log.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + "_" + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"MONGO_CONNECT_TIMEOUT":  &c.Mongo.ConnectTimeout,
		"DISPATCH_CLOSE_TIMEOUT": &c.Dispatch.CloseTimeout,
	}
	for name, dst := range durations {
		if v, ok := lookup(EnvPrefix + "_" + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.NewValidationError(EnvPrefix+"_"+name, err.Error())
			}
			*dst = d
		}
	}

	if v, ok := lookup(EnvPrefix + "_DYNAMODB_CONSISTENT_READ"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"_DYNAMODB_CONSISTENT_READ", err.Error())
		}
		c.DynamoDB.ConsistentRead = b
	}
	return nil
}

// Validate normalizes names, fills zero values with defaults and rejects
// settings the selected backend cannot start with.
func (c *Config) Validate() error {
	def := Default()
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Mongo.ConnectTimeout <= 0 {
		c.Mongo.ConnectTimeout = def.Mongo.ConnectTimeout
	}
	if c.DynamoDB.KeyAttribute == "" {
		c.DynamoDB.KeyAttribute = def.DynamoDB.KeyAttribute
	}
	if c.Dispatch.MetricsPrefix == "" {
		c.Dispatch.MetricsPrefix = def.Dispatch.MetricsPrefix
	}
	if c.Dispatch.CloseTimeout <= 0 {
		c.Dispatch.CloseTimeout = def.Dispatch.CloseTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	switch c.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.NewValidationError("mongo.uri", "required for the mongo backend")
		}
		if c.Mongo.Database == "" {
			return errors.NewValidationError("mongo.database", "required for the mongo backend")
		}
	case BackendDynamoDB:
		if c.DynamoDB.Region == "" {
			return errors.NewValidationError("dynamodb.region", "required for the dynamodb backend")
		}
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.NewValidationError("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}
