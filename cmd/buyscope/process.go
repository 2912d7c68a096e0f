package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buyScope/internal/config"
)

const maxPayloadSize = 32 << 20

func runProcess(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	ndjson, _ := cmd.Flags().GetBool("ndjson")

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		return processStream(ctx, a, "stdin", os.Stdin, ndjson)
	}
	for _, path := range args {
		if err := processFile(ctx, a, path, ndjson); err != nil {
			return err
		}
	}
	return nil
}

func processFile(ctx context.Context, a *app, path string, ndjson bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}
	defer file.Close()
	return processStream(ctx, a, path, file, ndjson)
}

func processStream(ctx context.Context, a *app, name string, r io.Reader, ndjson bool) error {
	if !ndjson {
		payload, err := io.ReadAll(io.LimitReader(r, maxPayloadSize))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return processPayload(ctx, a, name, payload)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxPayloadSize)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload := bytes.TrimSpace(scanner.Bytes())
		if len(payload) == 0 {
			continue
		}
		if err := processPayload(ctx, a, fmt.Sprintf("%s:%d", name, line), payload); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func processPayload(ctx context.Context, a *app, name string, payload []byte) error {
	alerts, err := a.handle(ctx, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	a.logger.Info("payload processed", zap.String("source", name), zap.Int("alerts", alerts))
	return nil
}
