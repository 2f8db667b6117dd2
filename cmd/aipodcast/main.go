package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"podcast-agent/internal/config"
	"podcast-agent/internal/domain"
	"podcast-agent/internal/integrations/backend"
	"podcast-agent/internal/integrations/paramstore"
	"podcast-agent/internal/observability"
	"podcast-agent/internal/output"
	"podcast-agent/internal/repository"
	"podcast-agent/internal/tokenizer"
	"podcast-agent/internal/usecase"
)

type cliFlags struct {
	configPath string
	outputPath string
	format     string
	host       string
	guest      string
	theme      string
	tone       string
	duration   int
	model      string
	store      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "path to a YAML config file, or ssm:<parameter-name>")
	flag.StringVar(&f.configPath, "c", "", "shorthand for --config")
	flag.StringVar(&f.outputPath, "output", "", "output file path (default output/podcast_<timestamp>.<ext>)")
	flag.StringVar(&f.outputPath, "o", "", "shorthand for --output")
	flag.StringVar(&f.format, "format", "", "output format: json or markdown")
	flag.StringVar(&f.format, "f", "", "shorthand for --format")
	flag.StringVar(&f.host, "host", "", "host name")
	flag.StringVar(&f.guest, "guest", "", "guest name")
	flag.StringVar(&f.theme, "theme", "", "podcast theme")
	flag.StringVar(&f.tone, "tone", "", "podcast tone")
	flag.IntVar(&f.duration, "duration", 0, "target duration in minutes")
	flag.StringVar(&f.model, "model", "", "model name")
	flag.BoolVar(&f.store, "store", false, "also store the episode in DynamoDB (storage.dynamodb_table)")
	flag.Parse()
	return f
}

// awsClients loads the AWS SDK config on first use so runs that never touch
// SSM or DynamoDB need no credentials.
type awsClients struct {
	ctx    context.Context
	logger *zap.Logger

	once   sync.Once
	params *paramstore.Client
	dynamo *awsdynamodb.Client
	err    error
}

func (a *awsClients) init() error {
	a.once.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(a.ctx)
		if err != nil {
			a.err = fmt.Errorf("load AWS config: %w", err)
			return
		}
		a.params, a.err = paramstore.New(awsssm.NewFromConfig(cfg), paramstore.WithLogger(a.logger))
		a.dynamo = awsdynamodb.NewFromConfig(cfg)
	})
	return a.err
}

func (a *awsClients) GetParameter(ctx context.Context, name string) (string, error) {
	if err := a.init(); err != nil {
		return "", err
	}
	return a.params.GetParameter(ctx, name)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()
	flags := parseFlags()

	bootLogger, err := observability.NewLogger(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	if envErr != nil {
		bootLogger.Debug("no .env file loaded, using process environment only", zap.Error(envErr))
	}

	aws := &awsClients{ctx: ctx, logger: bootLogger}
	cfg, src, err := config.NewLoader().
		WithConfigPath(flags.configPath).
		WithParamGetter(aws).
		Load(ctx)
	if err != nil {
		bootLogger.Error("failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		bootLogger.Error("failed to build logger", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	aws.logger = logger
	logger.Info("configuration loaded", zap.String("source", src.Kind), zap.String("name", src.Name))

	opts := []usecase.EpisodeOption{usecase.WithEpisodeLogger(logger)}
	if flags.store {
		if cfg.Storage.DynamoDBTable == "" {
			logger.Error("--store requires storage.dynamodb_table")
			os.Exit(1)
		}
		if err := aws.init(); err != nil {
			logger.Error("failed to initialise AWS clients", zap.Error(err))
			os.Exit(1)
		}
		counter := tokenizer.NewTiktoken("")
		if err := counter.Err(); err != nil {
			logger.Warn("tiktoken unavailable, estimating token counts", zap.Error(err))
		}
		logger.Debug("token counter ready", zap.String("counter", counter.Name()))
		store, err := repository.New(aws.dynamo, cfg.Storage.DynamoDBTable, repository.WithTokenCounter(counter))
		if err != nil {
			logger.Error("failed to create episode store", zap.Error(err))
			os.Exit(1)
		}
		opts = append(opts, usecase.WithEpisodeStore(store))
	}

	newBackend := func(c *config.Config) (usecase.TextGenerator, error) {
		client, err := backend.New(c, aws, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	svc, err := usecase.NewEpisodeService(cfg, newBackend, opts...)
	if err != nil {
		logger.Error("failed to create episode service", zap.Error(err))
		os.Exit(1)
	}

	progress := usecase.ObserverFunc(func(turn domain.TurnRecord, index, total int) {
		logger.Info(fmt.Sprintf("turn %d/%d", index+1, total), zap.String("speaker", turn.Speaker))
	})
	out, err := svc.Produce(ctx, usecase.EpisodeInput{
		Overrides: config.Overrides{
			Host:         flags.host,
			Guest:        flags.guest,
			Theme:        flags.theme,
			Tone:         flags.tone,
			Duration:     flags.duration,
			Model:        flags.model,
			OutputFormat: flags.format,
			OutputFile:   flags.outputPath,
		},
		Preflight: true,
		Store:     flags.store,
		Observer:  progress,
	})
	if err != nil {
		var uerr *usecase.Error
		if errors.As(err, &uerr) && (uerr.Code == usecase.ErrorBackendUnavailable || uerr.Code == usecase.ErrorBackend) {
			logger.Error("backend connectivity check failed; is the model server running?", zap.Error(err))
		} else {
			logger.Error("failed to generate podcast", zap.Error(err))
		}
		os.Exit(1)
	}

	path, err := output.Save(out.Config.Podcast.OutputFormat, out.Config.Podcast.OutputFile, out.Metadata, out.Transcript.Turns())
	if err != nil {
		logger.Error("failed to save podcast", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("Podcast saved to: %s\n", path)
}
