// internal/app/system/indexes/indexes.go

// Package indexes declares the MongoDB indexes the application relies on
// and reconciles them at startup.
//
// Terminology: user_id is the ObjectID (_id) of a user record, login_id
// is the human-readable string typed on the login form.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// desired lists every index per collection. Order matters only for log
// readability.
var desired = []struct {
	collection string
	models     []mongo.IndexModel
}{
	{"users", []mongo.IndexModel{
		{
			// A login id is unique within its auth method.
			Keys: bson.D{
				{Key: "login_id_ci", Value: 1},
				{Key: "auth_method", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_login_auth"),
		},
		{
			// User list pages sorted by folded name.
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},
		{
			// User list pages searched by login id.
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "login_id_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_loginidci_id"),
		},
	}},
	{"profiles", []mongo.IndexModel{
		{
			// One profile document per user.
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_profile_user"),
		},
	}},
	{"monthly_reports", []mongo.IndexModel{
		{
			// One report per user per period.
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "period", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_report_user_period"),
		},
		{
			// History pages sorted by the derived period timestamp.
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("idx_report_user_time"),
		},
	}},
	{"oauth_states", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		{
			// TTL cleanup of abandoned OAuth handshakes.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_expires_ttl"),
		},
	}},
	{"site_settings", []mongo.IndexModel{
		{
			// The settings document is a singleton.
			Keys:    bson.D{{Key: "singleton", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sitesettings_singleton"),
		},
	}},
	{"sessions", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_session_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_session_user"),
		},
		{
			// TTL cleanup of expired sessions.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_session_ttl"),
		},
	}},
}

// EnsureAll reconciles every declared index. It runs at startup, is
// idempotent, and collects all problems so startup can fail fast with a
// single message naming everything that went wrong.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range desired {
		if err := ensureCollection(ctx, db.Collection(d.collection), d.models); err != nil {
			problems = append(problems, d.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

// keySig flattens a key pattern into a comparable string so indexes can
// be matched by their keys rather than by name.
func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

// loadExisting maps key signature to the index currently on the
// collection. A listing failure is treated as an empty collection; the
// subsequent create will surface any real problem.
func loadExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("could not decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// ensureCollection reconciles one collection. Indexes whose keys and
// uniqueness already match are reused; a uniqueness mismatch drops and
// recreates the index.
func ensureCollection(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := loadExisting(ctx, coll)

	var errs []string
	for _, m := range models {
		name := ""
		unique := false
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolOf(m.Options.Unique)
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		ex, found := existing[sig]
		if found && boolOf(ex.Unique) == unique {
			zap.L().Info("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name),
				zap.String("keys", sig))
			continue
		}

		if found {
			// Same keys, different uniqueness. Rebuild under the declared
			// options.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop failed: %v", name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			switch {
			case unique && isDuplicateKeyErr(err):
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index (duplicates present)", name))
			default:
				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", name),
					zap.String("keys", sig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.Bool("rebuilt", found),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// isDuplicateKeyErr matches the E11000 duplicate key error across the
// shapes different server vendors return it in.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}
