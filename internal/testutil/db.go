// Package testutil holds shared test helpers: database setup, template
// booting and request builders.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vitalmetrics/fitreport/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TestDBURI points tests at a local MongoDB instance.
	TestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database name.
	TestDBName = "fitreport_test"
)

// connect builds the shared client once. The pool is sized generously
// because packages run their tests in parallel against the same server.
var connect = sync.OnceValues(func() (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(TestDBURI).
		SetMaxPoolSize(200).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return c, nil
})

// SetupTestDB hands the test its own database, named after the test so
// parallel runs never collide, with the production indexes in place.
// The database is dropped again through t.Cleanup.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := connect()
	if err != nil {
		t.Fatalf("connect to test MongoDB: %v", err)
	}

	db := client.Database(TestDBName + "_" + dbNameSuffix(t.Name()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})

	return db
}

// dbNameSuffix turns a test name into a legal database name suffix.
// MongoDB caps database names at 63 characters; with the shared prefix
// that leaves 48 for the suffix.
func dbNameSuffix(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name) && b.Len() < 48; i++ {
		switch c := name[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// TestContext returns a context generous enough for any single test
// database operation.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
