package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/UsamaUmmsi/portfolio/backend/internal/config"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"github.com/UsamaUmmsi/portfolio/backend/internal/view"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errInvalidWatchCommand = errors.New("expected \"delete <id>\"")

const (
	// clearScreen moves the cursor home and clears the terminal.
	clearScreen = "\x1b[H\x1b[2J"
	watchHint   = "Type \"delete <id>\" and press Enter to remove a submission."
)

func newSubmissionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Inspect and manage stored contact submissions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the stored submissions newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *submissions.Store, _ config.AppConfig, _ *zap.Logger) error {
				snapshot, err := view.Collect(cmd.Context(), store, nil)
				if err != nil {
					return err
				}
				return view.Render(cmd.OutOrStdout(), snapshot)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the submission with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid submission id %q", args[0])
			}
			return withStore(func(store *submissions.Store, _ config.AppConfig, _ *zap.Logger) error {
				return store.Delete(cmd.Context(), id)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Show the submissions and refresh them on the poll interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *submissions.Store, appConfig config.AppConfig, logger *zap.Logger) error {
				return watchSubmissions(cmd.Context(), store, appConfig, logger, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	})
	return cmd
}

// withStore opens the configured store for a single CLI command. Writes are
// serialized within this process only; a running server keeps its own queue.
func withStore(run func(*submissions.Store, config.AppConfig, *zap.Logger) error) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(appConfig)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, closeStore, err := openStore(appConfig, nil, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	return run(store, appConfig, logger)
}

// watchSubmissions mounts a view until interrupted. Each "delete <id>" line
// read from in removes that submission through the view.
func watchSubmissions(ctx context.Context, store *submissions.Store, appConfig config.AppConfig, logger *zap.Logger, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	submissionView, err := view.New(view.Config{
		Source:       store,
		PollInterval: appConfig.PollInterval,
		Logger:       logger,
		OnRender: func(snapshot view.Snapshot) {
			_, _ = io.WriteString(out, clearScreen)
			if err := view.Render(out, snapshot); err != nil {
				logger.Warn("render failed", zap.Error(err))
			}
			_, _ = fmt.Fprintln(out, watchHint)
		},
	})
	if err != nil {
		return err
	}
	if err := submissionView.Mount(signalCtx); err != nil {
		return err
	}
	if in != nil {
		go readWatchCommands(signalCtx, in, submissionView, logger)
	}
	<-signalCtx.Done()
	submissionView.Unmount()
	return nil
}

func readWatchCommands(ctx context.Context, in io.Reader, submissionView *view.View, logger *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := parseDeleteCommand(line)
		if err != nil {
			logger.Warn("watch command ignored", zap.String("input", line), zap.Error(err))
			continue
		}
		err = submissionView.Delete(ctx, id)
		if errors.Is(err, view.ErrUnmounted) {
			return
		}
		if err != nil {
			logger.Warn("watch delete failed", zap.Int64("submission_id", id), zap.Error(err))
		}
	}
}

func parseDeleteCommand(line string) (int64, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || (fields[0] != "delete" && fields[0] != "d") {
		return 0, errInvalidWatchCommand
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid submission id %q", fields[1])
	}
	return id, nil
}
