package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/mikey/llm-mail-assistant/internal/adapters/gcal"
	"github.com/mikey/llm-mail-assistant/internal/adapters/ingress"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Authorize {
		err = container.Invoke(func(provider *gcal.FileTokenProvider, logger *zap.Logger) error {
			defer logger.Sync()
			return provider.Authorize(ctx, os.Stdout)
		})
	} else {
		err = container.Invoke(func(source *ingress.CLISource, completer core.Completer, logger *zap.Logger) error {
			return process(ctx, flags, source, completer, logger)
		})
	}
	if err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// process reads the message from the file or stdin and prints the outcome
func process(ctx context.Context, flags *di.CLIFlags, source *ingress.CLISource, completer core.Completer, logger *zap.Logger) error {
	defer logger.Sync()

	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	logger.Info("Using completion model", zap.String("model", completer.Model()))

	_, err := source.Process(ctx, reader)

	if closer, ok := completer.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close completion client", zap.Error(cerr))
		}
	}

	return err
}
