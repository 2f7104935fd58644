package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/redferry/redferry/config"
	"github.com/redferry/redferry/etl"
)

var (
	source      string
	destination string
	iamRole     string
	dbUser      string
	dbName      string
	bucket      string
	region      string
	pollTimeout time.Duration
	concurrency int
	verbose     bool
	version     bool
)

func main() {
	pflag.StringVarP(&source, "source", "s", "", "source cluster identifier")
	pflag.StringVarP(&destination, "destination", "d", "", "destination cluster identifier")
	pflag.StringVarP(&iamRole, "iam-role", "r", "", "IAM role ARN used by UNLOAD and COPY")
	pflag.StringVarP(&dbUser, "db-user", "u", "", "database user")
	pflag.StringVarP(&dbName, "db-name", "n", "", "database name")
	pflag.StringVarP(&bucket, "s3-bucket", "b", "", "S3 bucket staging exported data")
	pflag.StringVar(&region, "region", "", "AWS region")
	pflag.DurationVar(&pollTimeout, "poll-timeout", 30*time.Minute, "maximum wait for a single statement")
	pflag.IntVar(&concurrency, "concurrency", 1, "tables migrated in parallel")
	pflag.BoolVar(&verbose, "verbose", false, "verbose logs")
	pflag.BoolVar(&version, "version", false, "show version")
	pflag.Parse()

	if version {
		fmt.Println("redferry version", etl.Version)
		return
	}

	var logger *zap.Logger
	if verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	//nolint:errcheck
	defer logger.Sync()

	var cfg config.Config
	if conf := os.Getenv("REDFERRY_CONF"); conf != "" {
		if err := config.Load(conf, &cfg); err != nil {
			logger.Fatal("unable to load config", zap.Error(err), zap.String("config_path", conf))
		}
	}

	mergeFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := etl.NewEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("unable to initialize engine", zap.Error(err))
	}

	if err := engine.Run(ctx); err != nil {
		logger.Fatal("migration failed",
			zap.Error(err),
			zap.String("source", cfg.Source),
			zap.String("destination", cfg.Destination))
	}

	logger.Info("Migration finished",
		zap.String("source", cfg.Source),
		zap.String("destination", cfg.Destination))
}

// mergeFlags overlays command-line flags on the optional config file.
// A flag set on the command line always wins.
func mergeFlags(cfg *config.Config) {
	if source != "" {
		cfg.Source = source
	}
	if destination != "" {
		cfg.Destination = destination
	}
	if iamRole != "" {
		cfg.IAMRole = iamRole
	}
	if dbUser != "" {
		cfg.DBUser = dbUser
	}
	if dbName != "" {
		cfg.DBName = dbName
	}
	if bucket != "" {
		cfg.Bucket = bucket
	}
	if region != "" {
		cfg.Region = region
	}
	if pflag.CommandLine.Changed("concurrency") || cfg.Concurrency == 0 {
		cfg.Concurrency = concurrency
	}

	cfg.PollTimeout = pollTimeout
}
