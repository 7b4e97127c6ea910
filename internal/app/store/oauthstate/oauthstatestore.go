// Package oauthstate persists single-use state tokens for the Google
// OAuth login flow.
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stateTTL bounds how long a login attempt may sit between the redirect
// to Google and the callback.
const stateTTL = 10 * time.Minute

// State is one pending OAuth round trip.
type State struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	State     string             `bson:"state"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Store reads and writes the oauth_states collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// EnsureIndexes creates the unique state index and the TTL index that
// lets MongoDB expire abandoned tokens on its own.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create records a freshly issued state token.
func (s *Store) Create(ctx context.Context, state string) error {
	now := time.Now()
	_, err := s.c.InsertOne(ctx, State{
		ID:        primitive.NewObjectID(),
		State:     state,
		ExpiresAt: now.Add(stateTTL),
		CreatedAt: now,
	})
	return err
}

// Verify consumes a state token. It reports whether the token existed
// and had not expired; the token is deleted either way it matches, so a
// replayed callback fails.
func (s *Store) Verify(ctx context.Context, state string) bool {
	filter := bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	return s.c.FindOneAndDelete(ctx, filter).Err() == nil
}
