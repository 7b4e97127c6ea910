// internal/domain/models/monthlyreport.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MonthlyReport is one user's submitted metrics for one calendar
// period ("YYYY-MM"), plus the generated narrative once available.
// The (user_id, period) pair is unique; resubmission merges into the
// existing document rather than creating a second one.
type MonthlyReport struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Period string             `bson:"period" json:"period"` // "YYYY-MM"

	// Metrics maps metric key to the value as entered. Values are kept
	// as strings; absent keys mean the user left the field empty.
	Metrics map[string]string `bson:"metrics" json:"metrics"`

	// Timestamp is derived from the period (first day at 12:00 UTC) and
	// exists purely as a chronological sort key.
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// GeneratedHTML is the sanitized report narrative. Non-empty marks
	// the report as finalized; only finalized reports appear in the
	// archive.
	GeneratedHTML string `bson:"generated_html,omitempty" json:"generated_html,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Finalized reports whether the report has a generated narrative.
func (r *MonthlyReport) Finalized() bool {
	return r.GeneratedHTML != ""
}

// PeriodTimestamp derives the sort timestamp for a period: the first
// day of the month at 12:00 UTC. Returns an error for malformed
// periods.
func PeriodTimestamp(period string) (time.Time, error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), 1, 12, 0, 0, 0, time.UTC), nil
}
