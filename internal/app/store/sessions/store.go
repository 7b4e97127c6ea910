// internal/app/store/sessions/store.go

// Package sessions tracks server-side session records. The cookie that
// gorilla/sessions manages is the source of truth for authentication;
// the records here let users review and revoke their open sessions and
// give the cleanup job something to sweep.
package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Reasons recorded when a session ends.
const (
	EndReasonLogout  = "logout"
	EndReasonExpired = "expired"
)

// Session is one tracked login. Token matches the random token stored
// in the cookie; LogoutAt stays nil while the session is active.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	IPAddress string             `bson:"ip_address,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty"`

	LoginAt      time.Time  `bson:"login_at"`
	LogoutAt     *time.Time `bson:"logout_at,omitempty"`
	LastActivity time.Time  `bson:"last_activity"`
	EndReason    string     `bson:"end_reason,omitempty"`
	DurationSecs int64      `bson:"duration_secs,omitempty"`

	ExpiresAt time.Time `bson:"expires_at"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store reads and writes session records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// EnsureIndexes creates the token lookup, the per-user listing index and
// the TTL sweep on expires_at.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_session_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_session_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_session_ttl"),
		},
	})
	return err
}

// Create inserts a session record, filling in the ID and the login and
// activity timestamps when the caller left them zero.
func (s *Store) Create(ctx context.Context, session Session) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.LoginAt.IsZero() {
		session.LoginAt = now
	}
	if session.LastActivity.IsZero() {
		session.LastActivity = now
	}
	_, err := s.c.InsertOne(ctx, session)
	return err
}

// GetByToken finds the active session for a token. Sessions that were
// closed or have expired do not match.
func (s *Store) GetByToken(ctx context.Context, token string) (*Session, error) {
	var session Session
	err := s.c.FindOne(ctx, bson.M{
		"token":      token,
		"logout_at":  nil,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Session, error) {
	var session Session
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByUserExcept removes every session of a user except the one
// holding exceptToken. Backs the "disconnect all other sessions" action.
func (s *Store) DeleteByUserExcept(ctx context.Context, userID primitive.ObjectID, exceptToken string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{
		"user_id": userID,
		"token":   bson.M{"$ne": exceptToken},
	})
	return err
}

// ListByUser returns the user's unexpired sessions, most recently active
// first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]Session, error) {
	cursor, err := s.c.Find(ctx, bson.M{
		"user_id":    userID,
		"expires_at": bson.M{"$gt": time.Now()},
	}, options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Session
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateActivity stamps last_activity for a token. IP and user agent are
// only written when non-empty, so a proxy hop that hides them does not
// blank the stored values.
func (s *Store) UpdateActivity(ctx context.Context, token string, ip string, userAgent string) error {
	now := time.Now()
	set := bson.M{
		"last_activity": now,
		"updated_at":    now,
	}
	if ip != "" {
		set["ip_address"] = ip
	}
	if userAgent != "" {
		set["user_agent"] = userAgent
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"token": token}, bson.M{"$set": set})
	return err
}

// Close marks a session as ended, recording the reason and the computed
// duration. The record stays around for the session history.
func (s *Store) Close(ctx context.Context, token string, reason string) error {
	var session Session
	if err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&session); err != nil {
		return err
	}

	now := time.Now()
	_, err := s.c.UpdateOne(ctx, bson.M{"token": token}, bson.M{
		"$set": bson.M{
			"logout_at":     now,
			"end_reason":    reason,
			"duration_secs": int64(now.Sub(session.LoginAt).Seconds()),
			"updated_at":    now,
		},
	})
	return err
}
