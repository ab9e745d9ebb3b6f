package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kode4food/delay"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the stored scheduled commands as JSONL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := delay.OpenStore(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() { _ = store.Close() }()

		a, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load archive: %w", err)
		}
		return delay.WriteJSONL(cmd.OutOrStdout(), a)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge scheduled commands from a JSONL file into the store",
	Long: `Merge scheduled commands from a JSONL file into the store. Records
already in the store are kept as stored, including any that cannot be
parsed. Malformed incoming records and incoming identifiers that are
already present are skipped and logged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		incoming, err := delay.ReadJSONL(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		ctx := cmd.Context()
		store, err := delay.OpenStore(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() { _ = store.Close() }()

		n, err := mergeArchive(ctx, store, incoming)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(),
			"Imported %d of %d records\n", n, len(incoming.Records),
		)
		return nil
	},
}

// mergeArchive adds the incoming records to those already stored and saves
// the result, returning how many incoming records were accepted. Stored
// records that do not import are written back unchanged after the rest
func mergeArchive(
	ctx context.Context, store delay.Store, incoming *delay.Archive,
) (int, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load archive: %w", err)
	}

	sched := delay.NewScheduler(nil, delay.WithLogger(logger))
	kept := 0
	var unparsed []json.RawMessage
	for _, raw := range current.Records {
		if sched.Import([]json.RawMessage{raw}) == 0 {
			unparsed = append(unparsed, raw)
			continue
		}
		kept++
	}
	added := sched.Import(incoming.Records)

	merged, err := delay.NewArchive(
		max(current.Clock, incoming.Clock), sched.Export(),
	)
	if err != nil {
		return 0, err
	}
	merged.Records = append(merged.Records, unparsed...)
	if err := store.Save(ctx, merged); err != nil {
		return 0, fmt.Errorf("failed to save archive: %w", err)
	}
	logger.Info("Archive imported",
		zap.Int("kept", kept),
		zap.Int("unparsed", len(unparsed)),
		zap.Int("added", added),
		zap.Int64("clock", int64(merged.Clock)),
	)
	return added, nil
}
