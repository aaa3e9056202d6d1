package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/icon-generator/internal/config"
	"github.com/aliskhannn/icon-generator/internal/infra/kafka/producer"
	"github.com/aliskhannn/icon-generator/internal/manifest"
	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/processor"
	"github.com/aliskhannn/icon-generator/internal/publisher"
	"github.com/aliskhannn/icon-generator/internal/service/iconset"
	"github.com/aliskhannn/icon-generator/internal/storage/file"
	"github.com/aliskhannn/icon-generator/internal/storage/object"
)

// Exit codes.
const (
	exitOK      = 0
	exitFatal   = 1 // configuration, missing or undecodable source, output directory
	exitPartial = 2 // some icons failed and run.fail_on_entry_error is set
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one generation with the given command-line arguments and
// returns the process exit code.
func run(args []string) int {
	// Signals only cancel publishing; local generation always runs to the end.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()

	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		zlog.Logger.Error().Err(err).Msg("failed to parse flags")
		return exitFatal
	}

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path, flags)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to load config")
		return exitFatal
	}

	svc, err := iconset.NewService(processor.Options{
		Filter:      cfg.Render.Filter,
		Fit:         cfg.Render.Fit,
		Background:  cfg.Render.Background,
		Compression: cfg.Render.Compression,
	}, cfg.Run.Workers, zlog.Logger)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to create icon service")
		return exitFatal
	}

	zlog.Logger.Info().
		Str("source", cfg.Source).
		Int("icons", len(cfg.Icons)).
		Msg("generating icon set")

	res, err := svc.Run(ctx, cfg.Source, cfg.OutputDir, cfg.Icons)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("icon generation aborted")
		return exitFatal
	}

	partial := res.Partial()

	var extra []string
	if cfg.Manifest.Enabled {
		mp, err := manifest.Write(ctx, file.NewStorage(cfg.OutputDir), cfg.Icons, res.Written)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to write manifest")
			partial = true
		} else {
			extra = append(extra, manifest.FileName)
			zlog.Logger.Info().Str("path", mp).Msg("manifest written")
		}
	}

	if cfg.Storage.Enabled || cfg.Kafka.Enabled {
		if err := publish(ctx, cfg, res, extra); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to publish icon set")
			partial = true
		}
	}

	zlog.Logger.Info().
		Str("location", cfg.OutputDir).
		Int("written", len(res.Written)).
		Int("failed", len(res.Failed)).
		Msg("icon set ready")

	if partial && cfg.Run.FailOnEntryError {
		return exitPartial
	}

	return exitOK
}

// publish mirrors the run to object storage and announces it on Kafka,
// depending on which of the two is enabled.
func publish(ctx context.Context, cfg *config.Config, res model.RunResult, extra []string) error {
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	pub := publisher.New(strategy, zlog.Logger)

	if cfg.Storage.Enabled {
		st, err := object.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		pub.WithBucket(st, cfg.Storage.Prefix)
	}

	if cfg.Kafka.Enabled {
		p := producer.New(&cfg.Kafka, strategy)
		defer func() {
			if err := p.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
			}
		}()
		pub.WithProducer(p)
	}

	objects, err := pub.Publish(ctx, res, extra...)
	zlog.Logger.Info().Int("objects", len(objects)).Msg("icon set published")

	return err
}
