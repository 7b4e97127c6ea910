// internal/app/store/reports/reportstore.go
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/report"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no report exists for a user/period.
	ErrNotFound = errors.New("monthly report not found")

	// ErrBadPeriod is returned for a period not in "YYYY-MM" form.
	ErrBadPeriod = errors.New(`period must be in "YYYY-MM" form`)
)

// Store provides access to the monthly_reports collection. One
// document per user per period; the (user_id, period) pair is unique.
type Store struct {
	c *mongo.Collection
}

// New creates a new monthly report store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("monthly_reports")}
}

// EnsureIndexes creates necessary indexes for the collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "period", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_report_user_period"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("idx_report_user_time"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Get retrieves the report for a user and period.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID, period string) (*models.MonthlyReport, error) {
	var r models.MonthlyReport
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "period": period}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Exists reports whether a document exists for the user and period.
func (s *Store) Exists(ctx context.Context, userID primitive.ObjectID, period string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "period": period})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MergeMetrics merge-writes metric values for one period. Each key is
// written individually under metrics.<key>, so keys absent from the
// map keep their stored values and generated_html is never touched.
// The document is created on first write with its derived timestamp.
func (s *Store) MergeMetrics(ctx context.Context, userID primitive.ObjectID, period string, metrics map[string]string) error {
	ts, err := models.PeriodTimestamp(period)
	if err != nil {
		return ErrBadPeriod
	}

	now := time.Now().UTC()
	set := bson.M{
		"timestamp":  ts,
		"updated_at": now,
	}
	for k, v := range metrics {
		if report.IsMetricKey(k) {
			set[fmt.Sprintf("metrics.%s", k)] = v
		}
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"user_id":    userID,
			"period":     period,
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err = s.c.UpdateOne(ctx, bson.M{"user_id": userID, "period": period}, update, opts)
	return err
}

// SetGeneratedHTML merge-writes the generated narrative into an
// existing report. Returns ErrNotFound if no document exists for the
// period; generation never creates a report on its own.
func (s *Store) SetGeneratedHTML(ctx context.Context, userID primitive.ObjectID, period, html string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "period": period},
		bson.M{"$set": bson.M{
			"generated_html": html,
			"updated_at":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns all of a user's reports sorted ascending by the
// derived timestamp, the order the prompt builder expects history in.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.MonthlyReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reports []models.MonthlyReport
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ListFinalized returns the user's finalized reports (non-empty
// generated_html), newest period first, for the archive view.
func (s *Store) ListFinalized(ctx context.Context, userID primitive.ObjectID) ([]models.MonthlyReport, error) {
	filter := bson.M{
		"user_id":        userID,
		"generated_html": bson.M{"$exists": true, "$ne": ""},
	}
	opts := options.Find().SetSort(bson.D{{Key: "period", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reports []models.MonthlyReport
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
