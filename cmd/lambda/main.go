package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"podcast-agent/handler"
	"podcast-agent/internal/config"
	"podcast-agent/internal/integrations/backend"
	"podcast-agent/internal/integrations/paramstore"
	"podcast-agent/internal/observability"
	"podcast-agent/internal/repository"
	"podcast-agent/internal/tokenizer"
	"podcast-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	configPath := mustEnv("CONFIG_PATH")
	stateTable := os.Getenv("STATE_TABLE")
	ttlDays := envInt("EPISODE_TTL_DAYS", 0)

	bootLogger, err := observability.NewLogger(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		bootLogger.Error("failed to load AWS config", zap.Error(err))
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg), paramstore.WithLogger(bootLogger))
	if err != nil {
		bootLogger.Error("failed to create SSM client", zap.Error(err))
		os.Exit(1)
	}

	cfg, src, err := config.NewLoader().WithConfigPath(configPath).WithInputsDir("").WithParamGetter(ssmClient).Load(ctx)
	if err != nil {
		bootLogger.Error("failed to load podcast config", zap.Error(err))
		os.Exit(1)
	}
	if stateTable != "" {
		cfg.Storage.DynamoDBTable = stateTable
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		bootLogger.Error("failed to build logger", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", zap.String("source", src.Kind), zap.String("name", src.Name))

	opts := []usecase.EpisodeOption{usecase.WithEpisodeLogger(logger)}
	handlerOpts := []handler.Option{handler.WithLogger(logger)}
	store := cfg.Storage.DynamoDBTable != ""
	if store {
		repo, err := repository.New(
			awsdynamodb.NewFromConfig(awsCfg),
			cfg.Storage.DynamoDBTable,
			repository.WithTokenCounter(newTokenCounter(logger)),
			repository.WithTTL(time.Duration(ttlDays)*24*time.Hour),
		)
		if err != nil {
			logger.Error("failed to create episode store", zap.Error(err))
			os.Exit(1)
		}
		opts = append(opts, usecase.WithEpisodeStore(repo))
		handlerOpts = append(handlerOpts, handler.WithReader(repo))
	}

	// ---- Handler ----
	newBackend := func(c *config.Config) (usecase.TextGenerator, error) {
		client, err := backend.New(c, ssmClient, logger)
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

	h, err := handler.NewHandler(svc, append(handlerOpts, handler.WithStore(store))...)
	if err != nil {
		logger.Error("failed to create handler", zap.Error(err))
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// newTokenCounter loads the BPE encoding at cold start so the first store
// does not pay for it.
func newTokenCounter(logger *zap.Logger) *tokenizer.Tiktoken {
	counter := tokenizer.NewTiktoken("")
	if err := counter.Err(); err != nil {
		logger.Warn("tiktoken unavailable, estimating token counts", zap.Error(err))
	}
	logger.Info("token counter ready", zap.String("counter", counter.Name()))
	return counter
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		_, _ = os.Stderr.WriteString("required environment variable is not set: " + key + "\n")
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
