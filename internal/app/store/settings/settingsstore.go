// internal/app/store/settings/settingsstore.go

// Package settingsstore persists the admin-editable site settings.
package settingsstore

import (
	"context"
	"time"

	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The settings live in a single document, addressed through the
// singleton marker field so the upsert in Save has a stable target.
var singleton = bson.M{"singleton": true}

// Store reads and writes the site_settings document.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("site_settings")}
}

// Get loads the settings, falling back to the built-in defaults when
// nothing has been saved yet.
func (s *Store) Get(ctx context.Context) (*models.SiteSettings, error) {
	var settings models.SiteSettings
	err := s.c.FindOne(ctx, singleton).Decode(&settings)
	switch {
	case err == mongo.ErrNoDocuments:
		return &models.SiteSettings{
			SiteName:       models.DefaultSiteName,
			LandingTitle:   models.DefaultLandingTitle,
			LandingContent: models.DefaultLandingContent,
			FooterHTML:     models.DefaultFooterHTML,
		}, nil
	case err != nil:
		return nil, err
	}
	return &settings, nil
}

// Save upserts the settings document and stamps the update time.
func (s *Store) Save(ctx context.Context, settings models.SiteSettings) error {
	now := time.Now().UTC()
	settings.UpdatedAt = &now

	update := bson.M{
		"$set": bson.M{
			"singleton":       true,
			"site_name":       settings.SiteName,
			"landing_title":   settings.LandingTitle,
			"landing_content": settings.LandingContent,
			"footer_html":     settings.FooterHTML,
			"updated_at":      settings.UpdatedAt,
			"updated_by_id":   settings.UpdatedByID,
			"updated_by_name": settings.UpdatedByName,
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}

	_, err := s.c.UpdateOne(ctx, singleton, update, options.Update().SetUpsert(true))
	return err
}

// Exists reports whether an admin has saved settings at least once.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	count, err := s.c.CountDocuments(ctx, singleton)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
