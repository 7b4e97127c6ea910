// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/vitalmetrics/fitreport/internal/app/system/indexes"
	"github.com/vitalmetrics/fitreport/internal/llm"
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB opens the Mongo connection and builds the report
// generation backend, returning both in DBDeps. Runs after LoadConfig
// and before EnsureSchema.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	// Build the report generation service around the Gemini client.
	geminiClient := llm.NewGeminiClient(llm.Config{
		BaseURL: appCfg.GeminiBaseURL,
		Model:   appCfg.GeminiModel,
		APIKey:  appCfg.GeminiAPIKey,
		Timeout: appCfg.GeminiTimeout,
	})
	gen := reportgen.New(geminiClient, logger)

	logger.Info("initialized report generation",
		zap.String("model", appCfg.GeminiModel),
	)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		ReportGen:     gen,
	}, nil
}

// EnsureSchema creates the Mongo indexes. The context carries
// coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
