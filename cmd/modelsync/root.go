/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/suparena/modelsync"
	"github.com/suparena/modelsync/config"
)

// wrap is the column help text wraps at
const wrap = 50

// opener connects a client from the resolved configuration.
type opener func(ctx context.Context, cfg config.Config) (*modelsync.Client, error)

type app struct {
	v      *viper.Viper
	out    io.Writer
	open   opener
	client *modelsync.Client
}

// newRootCmd builds the command tree. A nil open connects with modelsync.Open.
func newRootCmd(out io.Writer, open opener) *cobra.Command {
	if open == nil {
		open = modelsync.Open
	}
	a := &app{v: viper.New(), out: out, open: open}

	root := &cobra.Command{
		Use:   "modelsync",
		Short: "inspect and edit modelsync collections",
		Long: fmt.Sprintf(`modelsync (v%s)

Command line access to the collections of a MongoDB, DynamoDB or in-memory
store through the same filters and updates the library uses.`, modelsync.Version),
		SilenceUsage:       true,
		PersistentPreRunE:  a.connect,
		PersistentPostRunE: a.disconnect,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("config", "", wrapString("path to a YAML configuration file"))
	flags.String("backend", "", wrapString("store to use (memory, mongo, dynamodb)"))
	flags.String("mongo-uri", "", wrapString("MongoDB connection string"))
	flags.String("mongo-database", "", wrapString("MongoDB database name"))
	flags.String("dynamodb-region", "", wrapString("AWS region of the DynamoDB tables"))
	flags.String("dynamodb-endpoint", "", wrapString("custom DynamoDB endpoint, e.g. for DynamoDB Local"))
	flags.String("dynamodb-table-prefix", "", wrapString("prefix prepended to every table name"))
	flags.String("log-level", "", wrapString("log level (debug, info, warn, error)"))
	flags.String("log-format", "", wrapString("log format (text, json)"))
	flags.StringP("output", "o", "json", wrapString("output format (json, yaml)"))
	flags.Duration("timeout", 30*time.Second, wrapString("timeout of a single command"))

	root.AddCommand(a.versionCmd())
	root.AddCommand(a.findCmd())
	root.AddCommand(a.findOneCmd())
	root.AddCommand(a.countCmd())
	root.AddCommand(a.insertCmd())
	root.AddCommand(a.updateCmd())
	root.AddCommand(a.removeCmd())
	root.AddCommand(a.loadAllCmd())
	root.AddCommand(a.typesCmd())
	return root
}

// initConfig reads .env files and maps MODELSYNC_* variables onto flag names.
func (a *app) initConfig(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix("modelsync")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	return a.v.BindPFlags(cmd.Flags())
}

// resolveConfig layers flags over the configuration file and environment.
func (a *app) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return config.Config{}, err
	}

	overrides := map[string]*string{
		"backend":               &cfg.Backend,
		"mongo-uri":             &cfg.Mongo.URI,
		"mongo-database":        &cfg.Mongo.Database,
		"dynamodb-region":       &cfg.DynamoDB.Region,
		"dynamodb-endpoint":     &cfg.DynamoDB.Endpoint,
		"dynamodb-table-prefix": &cfg.DynamoDB.TablePrefix,
		"log-level":             &cfg.Log.Level,
		"log-format":            &cfg.Log.Format,
	}
	for key, dst := range overrides {
		if v := a.v.GetString(key); v != "" {
			*dst = v
		}
	}
	return cfg, cfg.Validate()
}

func (a *app) connect(cmd *cobra.Command, _ []string) error {
	if err := a.initConfig(cmd); err != nil {
		return err
	}
	cfg, err := a.resolveConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
	defer cancel()
	a.client, err = a.open(ctx, cfg)
	return err
}

func (a *app) disconnect(cmd *cobra.Command, _ []string) error {
	if a.client == nil {
		return nil
	}
	return a.client.Close(cmd.Context())
}

// ctx bounds a command by the --timeout flag.
func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
}

// wrapString wraps help text at wrap columns.
func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
