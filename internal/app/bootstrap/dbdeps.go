// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. It is the
// central place for clients and services that outlive a single request.
//
// The Shutdown hook is responsible for closing these connections
// gracefully when the application terminates.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// ReportGen invokes the language model for monthly reports.
	ReportGen *reportgen.Service
}
