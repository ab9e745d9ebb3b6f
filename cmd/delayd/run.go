package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kode4food/delay"
	"github.com/kode4food/delay/command"
)

const (
	defaultTPS   = 20
	defaultActor = "console"
	suggestMark  = "?"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tick loop, reading commands from stdin",
	Long: `Run the tick loop. Each line read from stdin is executed as the
console actor. A line starting with "?" prints completions for the rest of
the line. When stdin closes, the loop keeps ticking until nothing is pending.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tps, _ := cmd.Flags().GetInt("tps")
		actor, _ := cmd.Flags().GetString("actor")
		if tps <= 0 {
			return fmt.Errorf("tps must be positive, got %d", tps)
		}

		ctx, stop := signal.NotifyContext(
			context.Background(), os.Interrupt, syscall.SIGTERM,
		)
		defer stop()
		return runLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), tps, actor)
	},
}

func init() {
	runCmd.Flags().Int("tps", defaultTPS, "ticks per second")
	runCmd.Flags().String("actor", defaultActor, "actor name for console input")
}

func runLoop(
	ctx context.Context, in io.Reader, out io.Writer, tps int, actor string,
) error {
	store, err := delay.OpenStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	con := newConsole(out, actor, cfg.Command.PermissionLevel)
	opts := []delay.Option{
		delay.WithLogger(logger),
		delay.WithResolver(con),
	}
	if cfg.Notify.NATSURL != "" {
		nl, err := delay.NewNATSListener(
			cfg.Notify.NATSURL, cfg.Notify.Subject, logger,
		)
		if err != nil {
			_ = store.Close()
			return err
		}
		defer func() { _ = nl.Close() }()
		opts = append(opts, delay.WithListener(nl))
	}

	sess := delay.NewSession(cfg, con, store, opts...)
	loaded, err := sess.Load(ctx)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to load scheduled commands: %w", err)
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.Error("Failed to close session", zap.Error(err))
		}
	}()

	con.frontend = command.NewFrontend(sess.Engine(), sess, cfg.Command, logger)
	logger.Info("Scheduler running",
		zap.Int64("clock", int64(sess.Now())),
		zap.Int("loaded", loaded),
		zap.Int("tps", tps),
		zap.String("backend", cfg.Store.Backend),
	)

	lines := readLines(ctx, in)
	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			handleLine(con, out, line)
		case <-ticker.C:
			sess.Step(ctx)
			if lines == nil && sess.Scheduler().Len() == 0 {
				return nil
			}
		}
	}
}

func handleLine(con *console, out io.Writer, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	line = strings.TrimRight(line, "\r")
	if rest, ok := strings.CutPrefix(line, suggestMark); ok {
		_, _ = fmt.Fprintln(out, strings.Join(con.Suggest(rest), " "))
		return
	}

	err := con.Execute(line)
	var se *command.SyntaxError
	switch {
	case err == nil:
	case errors.As(err, &se):
		_, _ = fmt.Fprintln(out, se.Error())
	default:
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
	}
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
