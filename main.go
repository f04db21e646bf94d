package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dataingest/config"
	"dataingest/ingest"
	"dataingest/publish"
	"dataingest/scheduler"
	"dataingest/storage"
	"dataingest/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires the components and blocks until the job ends; it returns the process exit code.
func run(args []string) int {
	// reading configuration shall be the very first action because it also configures the logger
	conf, err := config.Load(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Println("ERROR: invalid configuration: ", err)
		return 2
	}

	logger, err := utils.NewLogger(utils.LogOptions{
		FilePath: conf.LogFile,
		JSON:     conf.JSONLogs,
		Dev:      conf.DevLogs,
		Verbose:  conf.Verbose,
		Trace:    conf.Trace,
	})
	if err != nil {
		log.Println("ERROR: ", err)
		return 2
	}
	defer logger.Close()
	logger.Info("Starting the application", zap.String("dir", conf.BaseDir),
		zap.String("dataset", conf.DatasetName), zap.String("type", conf.DataType), zap.String("url", conf.ArchiveURL))

	// SIGINT/SIGTERM stop the loop between cycles or abort the download in flight
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	resolver, err := storage.NewResolver(fs, conf.BaseDir, conf.DatasetName, conf.DataType, logger.Named("storage"))
	if err != nil {
		logger.Error("Invalid storage location", zap.Error(err))
		return 2
	}

	publishers, err := newPublishers(ctx, fs, conf, logger)
	if err != nil {
		logger.Error("Failed to configure publishing", zap.Error(err))
		return 2
	}

	cycle := ingest.NewCycle(fs, &http.Client{Timeout: conf.HTTPTimeout}, resolver, ingest.Settings{
		ArchiveURL:        conf.ArchiveURL,
		DatasetName:       conf.DatasetName,
		DataType:          conf.DataType,
		ArchiveName:       conf.ArchiveName,
		TableFile:         conf.TableFile,
		OutputName:        conf.OutputName,
		FatalOnParseError: conf.FatalOnParseError,
	}, logger.Named("cycle"), publishers...)

	job := scheduler.New(cycle, scheduler.Options{
		Interval:      conf.Interval,
		RetryInterval: conf.RetryInterval,
		MaxRuns:       conf.MaxRuns,
	}, logger)
	if err = job.Run(ctx); err != nil {
		logger.Error("Data ingestion job stopped", zap.Error(err))
		return 1
	}
	return 0
}

// newPublishers creates the optional sinks enabled in the configuration.
func newPublishers(ctx context.Context, fs afero.Fs, conf *config.Config, logger *utils.CustomLogger) ([]publish.Publisher, error) {
	var publishers []publish.Publisher
	if conf.S3Bucket != "" {
		logger.Info("Mirroring to AWS S3 bucket", zap.String("bucket", conf.S3Bucket), zap.String("prefix", conf.S3Prefix))
		mirror, err := publish.NewS3Mirror(ctx, fs, publish.S3Options{
			Bucket:    conf.S3Bucket,
			Prefix:    conf.S3Prefix,
			Region:    conf.AWSRegion,
			AccessKey: conf.AWSAccessKey,
			SecretKey: conf.AWSSecretKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, mirror)
	}
	if conf.PostgresURL != "" {
		logger.Info("Loading into PostgreSQL", zap.String("table", conf.PostgresTable),
			zap.Bool("truncate", conf.PostgresTruncate))
		loader, err := publish.NewPostgresLoader(fs, conf.PostgresURL, conf.PostgresTable, conf.PostgresTruncate, logger)
		if err != nil {
			return nil, fmt.Errorf("invalid PostgreSQL target: %w", err)
		}
		publishers = append(publishers, loader)
	}
	return publishers, nil
}
