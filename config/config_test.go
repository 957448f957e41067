/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/modelsync/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "_id", cfg.DynamoDB.KeyAttribute)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.CloseTimeout)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
backend: DynamoDB
dynamodb:
  region: eu-west-1
  tablePrefix: dev_
  consistentRead: true
dispatch:
  closeTimeout: 5s
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.Backend)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)
	assert.Equal(t, "dev_", cfg.DynamoDB.TablePrefix)
	assert.True(t, cfg.DynamoDB.ConsistentRead)
	assert.Equal(t, "_id", cfg.DynamoDB.KeyAttribute)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.CloseTimeout)
	assert.Equal(t, "modelsync_dispatch", cfg.Dispatch.MetricsPrefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "backend"},
		{"mongo without uri", func(c *Config) { c.Backend = BackendMongo; c.Mongo.URI = "" }, "mongo.uri"},
		{"mongo without database", func(c *Config) { c.Backend = BackendMongo; c.Mongo.Database = "" }, "mongo.database"},
		{"dynamodb without region", func(c *Config) { c.Backend = BackendDynamoDB; c.DynamoDB.Region = "" }, "dynamodb.region"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MODELSYNC_BACKEND":                  "mongo",
		"MODELSYNC_MONGO_URI":                "mongodb://db:27017",
		"MODELSYNC_MONGO_CONNECT_TIMEOUT":    "3s",
		"MODELSYNC_DYNAMODB_CONSISTENT_READ": "true",
		"MODELSYNC_LOG_LEVEL":                "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "mongo", cfg.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, 3*time.Second, cfg.Mongo.ConnectTimeout)
	assert.True(t, cfg.DynamoDB.ConsistentRead)
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Run("bad duration", func(t *testing.T) {
		env["MODELSYNC_DISPATCH_CLOSE_TIMEOUT"] = "soon"
		defer delete(env, "MODELSYNC_DISPATCH_CLOSE_TIMEOUT")
		cfg := Default()
		assert.True(t, errors.IsValidationError(cfg.applyEnv(lookup)))
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\nlog:\n  level: error\n"), 0o600))
	t.Setenv("MODELSYNC_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "collection", "users")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"collection":"users"`)

	_, err = NewLogger(LogConfig{Format: "xml"}, &buf)
	assert.Error(t, err)
}
