// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/vitalmetrics/fitreport/internal/app/resources"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/tasks"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// taskRunner is kept package-level so Shutdown can stop it.
var taskRunner *tasks.Runner

// idleSessionThreshold is how long a tracked session may go without a
// request before the cleanup job marks it ended.
const idleSessionThreshold = 30 * time.Minute

// Startup runs once after the Mongo connection and index setup, before
// the router is built. A non-nil error aborts the server. ctx is
// cancelled if the process is asked to shut down mid-startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	// viewdata loads site settings per request once it has the database.
	viewdata.Init(deps.MongoDatabase)

	if appCfg.SeedAdminEmail != "" {
		if err := ensureAdminUser(ctx, deps, appCfg.SeedAdminEmail, appCfg.SeedAdminName, logger); err != nil {
			logger.Error("failed to seed admin user", zap.Error(err))
			return err
		}
	}

	taskRunner = tasks.New(logger)
	taskRunner.Register(tasks.SessionCleanupJob(deps.MongoDatabase, logger))
	taskRunner.Register(tasks.OAuthStateCleanupJob(deps.MongoDatabase, logger))
	taskRunner.Register(tasks.InactiveSessionCleanupJob(deps.MongoDatabase, logger, idleSessionThreshold))
	taskRunner.Start()

	return nil
}

// ensureAdminUser guarantees an admin account behind the configured
// login id: an existing user is promoted, a missing one created.
func ensureAdminUser(ctx context.Context, deps DBDeps, loginID string, name string, logger *zap.Logger) error {
	store := userstore.New(deps.MongoDatabase)

	loginID = strings.ToLower(strings.TrimSpace(loginID))
	if name == "" {
		name = "Admin"
	}

	existing, err := store.GetByLoginID(ctx, loginID)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			logger.Debug("admin user already configured", zap.String("login_id", loginID))
			return nil
		}
		adminRole := models.RoleAdmin
		if err := store.UpdateFromInput(ctx, existing.ID, userstore.UpdateInput{Role: &adminRole}); err != nil {
			return err
		}
		logger.Info("promoted existing user to admin",
			zap.String("login_id", loginID),
			zap.String("user_id", existing.ID.Hex()),
			zap.String("previous_role", existing.Role))
		return nil
	case err != mongo.ErrNoDocuments:
		return err
	}

	// The seed login is an email address; storing it in email too lets
	// the admin sign in with Google right away.
	created, err := store.Create(ctx, models.User{
		FullName:   name,
		LoginID:    &loginID,
		Email:      &loginID,
		AuthMethod: "trust",
		Role:       models.RoleAdmin,
		Status:     "active",
	})
	if err != nil {
		return err
	}

	logger.Info("created admin user",
		zap.String("login_id", loginID),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
