/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/suparena/modelsync"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/registry"
	"github.com/suparena/modelsync/storagemodels"
)

// offline marks a command that runs without a store connection.
func offline(cmd *cobra.Command) *cobra.Command {
	noop := func(*cobra.Command, []string) error { return nil }
	cmd.PersistentPreRunE = noop
	cmd.PersistentPostRunE = noop
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return offline(&cobra.Command{
		Use:   "version",
		Short: "Print the version of modelsync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("output")
			return a.printValue(format, modelsync.GetVersionInfo())
		},
	})
}

func (a *app) typesCmd() *cobra.Command {
	return offline(&cobra.Command{
		Use:   "types",
		Short: "List the registered model types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range registry.TypeNames() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	})
}

func (a *app) findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [collection] [filter]",
		Short: "Print the documents matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt64("limit")
			skip, _ := cmd.Flags().GetInt64("skip")
			batch, _ := cmd.Flags().GetInt32("batch-size")

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			docs, err := a.client.Collection(args[0]).Find(ctx, f,
				storagemodels.WithLimit(limit),
				storagemodels.WithSkip(skip),
				storagemodels.WithBatchSize(batch),
			)
			if err != nil {
				return err
			}
			return a.printDocuments(a.v.GetString("output"), docs)
		},
	}
	cmd.Flags().Int64("limit", 0, wrapString("maximum number of documents, 0 for no limit"))
	cmd.Flags().Int64("skip", 0, wrapString("number of matching documents to skip"))
	cmd.Flags().Int32("batch-size", storagemodels.DefaultFindOptions().BatchSize, wrapString("documents fetched per round trip"))
	return cmd
}

func (a *app) findOneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find-one [collection] [filter]",
		Short: "Print the first document matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			doc, err := a.client.Collection(args[0]).FindOne(ctx, f)
			if err != nil {
				return err
			}
			return a.printDocuments(a.v.GetString("output"), []*document.Document{doc})
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [collection] [filter]",
		Short: "Count the documents matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			n, err := a.client.Collection(args[0]).Count(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
}

func (a *app) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert [collection] [document]",
		Short: "Insert a JSON document, read from stdin when omitted or '-'",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := documentInput(cmd, args, 1)
			if err != nil {
				return err
			}
			doc, err := document.Parse(raw)
			if err != nil {
				return errors.NewValidationError("document", err.Error())
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := a.client.Collection(args[0]).Insert(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "inserted 1 document")
			return nil
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [collection] [filter] [update]",
		Short: "Apply an update or replacement document to matching documents",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			ud, err := document.Parse([]byte(args[2]))
			if err != nil {
				return errors.NewValidationError("update", err.Error())
			}
			u, err := query.ParseUpdate(ud)
			if err != nil {
				return errors.NewValidationError("update", err.Error())
			}
			upsert, _ := cmd.Flags().GetBool("upsert")
			multi, _ := cmd.Flags().GetBool("multi")

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			res, err := a.client.Collection(args[0]).UpdateWithOptions(ctx, f, u, upsert, multi)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "matched %d, modified %d", res.MatchedCount, res.ModifiedCount)
			if res.UpsertedID != nil {
				fmt.Fprintf(a.out, ", upserted %v", res.UpsertedID)
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}
	cmd.Flags().Bool("upsert", false, wrapString("insert a document when nothing matches"))
	cmd.Flags().Bool("multi", false, wrapString("update every match instead of the first"))
	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [collection] [filter]",
		Short: "Delete the documents matching a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			if all, _ := cmd.Flags().GetBool("all"); f.IsAll() && !all {
				return errors.NewValidationError("filter", "empty filter removes every document, pass --all to confirm")
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			res, err := a.client.Collection(args[0]).Remove(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %d\n", res.DeletedCount)
			return nil
		},
	}
	cmd.Flags().Bool("all", false, wrapString("allow an empty filter"))
	return cmd
}

func (a *app) loadAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load-all [type]",
		Short: "Decode every document of a collection into a registered type",
		Long: `Decode every document of a collection into a registered type and print the
re-encoded result. Documents that fail to decode are reported on stderr and the
command exits with an error after printing the rest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nt, err := registry.LookupType(args[0])
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("collection")
			if name == "" {
				name = nt.Name
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			docs, err := a.client.Collection(name).Find(ctx, query.All())
			if err != nil {
				return err
			}

			engine := a.client.Engine()
			var failed []error
			out := make([]*document.Document, 0, len(docs))
			for _, doc := range docs {
				v, err := engine.New(nt.Type, doc)
				if err != nil {
					failed = append(failed, err)
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					continue
				}
				enc, err := engine.Encode(v)
				if err != nil {
					return err
				}
				out = append(out, enc)
			}
			if err := a.printDocuments(a.v.GetString("output"), out); err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d documents failed to decode: %w", len(failed), len(docs), stderrors.Join(failed...))
			}
			return nil
		},
	}
	cmd.Flags().String("collection", "", wrapString("collection to read, defaults to the type name"))
	return cmd
}

// filterArg parses args[i] as a JSON filter. A missing argument matches everything.
func filterArg(args []string, i int) (query.Filter, error) {
	if len(args) <= i || args[i] == "" {
		return query.All(), nil
	}
	doc, err := document.Parse([]byte(args[i]))
	if err != nil {
		return query.Filter{}, errors.NewValidationError("filter", err.Error())
	}
	f, err := query.ParseFilter(doc)
	if err != nil {
		return query.Filter{}, errors.NewValidationError("filter", err.Error())
	}
	return f, nil
}

// documentInput returns args[i], or stdin when it is missing or "-".
func documentInput(cmd *cobra.Command, args []string, i int) ([]byte, error) {
	if len(args) > i && args[i] != "-" {
		return []byte(args[i]), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}
