// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a member account. The ObjectID is the owner key for all
// profile and monthly report documents.
//
// login_id is what the member types on the login form; the *_ci fields
// hold folded (lowercased, diacritics stripped) copies used for
// matching and sorting. AuthMethod selects the sign-in flow: password,
// google or trust.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"`

	LoginID    *string `bson:"login_id" json:"login_id"`
	LoginIDCI  *string `bson:"login_id_ci" json:"login_id_ci"`
	Email      *string `bson:"email" json:"email"`
	AuthMethod string  `bson:"auth_method" json:"auth_method"`

	// bcrypt hash, never serialized to JSON.
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AllRoles lists the assignable roles, user first for form ordering.
func AllRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
