// internal/app/store/users/fetcher.go
package userstore

import (
	"context"

	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/normalize"
	"github.com/vitalmetrics/fitreport/internal/app/system/timeouts"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// sessionUserProjection limits the per-request lookup to the fields a
// SessionUser actually carries.
var sessionUserProjection = options.FindOne().SetProjection(bson.M{
	"_id":         1,
	"full_name":   1,
	"login_id":    1,
	"auth_method": 1,
	"role":        1,
	"status":      1,
})

// Fetcher implements auth.UserFetcher against the users collection, so
// the session middleware sees role and status changes on the very next
// request rather than at the next login.
type Fetcher struct {
	users  *mongo.Collection
	logger *zap.Logger
}

func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{users: db.Collection("users"), logger: logger}
}

// FetchUser loads the user behind a session. Any failure, including a
// malformed id, a missing record or a disabled account, yields nil and
// therefore an anonymous request.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, sessionUserProjection).Decode(&u); err != nil {
		return nil
	}
	if normalize.Status(u.Status) == "disabled" {
		return nil
	}

	su := auth.SessionUser{
		ID:   u.ID.Hex(),
		Name: u.FullName,
		Role: normalize.Role(u.Role),
	}
	if u.LoginID != nil {
		su.LoginID = *u.LoginID
	}
	return &su
}
