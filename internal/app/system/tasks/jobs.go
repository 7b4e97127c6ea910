// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// deleteExpired removes documents whose expires_at has passed.
func deleteExpired(ctx context.Context, db *mongo.Database, collection string) (int64, error) {
	result, err := db.Collection(collection).DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// SessionCleanupJob removes expired session records every hour.
func SessionCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "session-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			deleted, err := deleteExpired(ctx, db, "sessions")
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("cleaned up expired sessions", zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob removes expired Google OAuth state tokens every
// hour. States expire minutes after issue, so anything past expires_at
// belongs to an abandoned login attempt.
func OAuthStateCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			deleted, err := deleteExpired(ctx, db, "oauth_states")
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("cleaned up expired oauth states", zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}

// InactiveSessionCleanupJob closes sessions idle past the threshold.
// Sessions are marked ended (end_reason "inactive") rather than
// deleted, so the profile page's session list stays accurate.
func InactiveSessionCleanupJob(db *mongo.Database, logger *zap.Logger, threshold time.Duration) Job {
	return Job{
		Name:     "inactive-session-cleanup",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			now := time.Now()
			cutoff := now.Add(-threshold)

			result, err := db.Collection("sessions").UpdateMany(ctx,
				bson.M{
					"logout_at":     nil,
					"last_activity": bson.M{"$lt": cutoff},
				},
				bson.M{
					"$set": bson.M{
						"logout_at":  now,
						"end_reason": "inactive",
						"updated_at": now,
					},
				},
			)
			if err != nil {
				return err
			}
			if result.ModifiedCount > 0 {
				logger.Info("closed inactive sessions",
					zap.Int64("count", result.ModifiedCount),
					zap.Duration("threshold", threshold))
			}
			return nil
		},
	}
}
