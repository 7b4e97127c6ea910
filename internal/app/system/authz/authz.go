// Package authz answers "who is making this request" for view code.
package authz

import (
	"net/http"

	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the current user's role (lowercased), name and Mongo
// ObjectID. Without a user in context, or with a malformed user ID, it
// fails closed and reports the visitor role with ok=false, so ok=true
// always means an authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return normalize.Role(user.Role), user.Name, userID, true
}
