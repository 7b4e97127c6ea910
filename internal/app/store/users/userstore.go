// internal/app/store/users/userstore.go

// Package userstore persists user accounts.
//
// Two identifiers appear throughout: user_id is the ObjectID (_id) of
// the record, login_id is the string a member types on the login form.
// The folded *_ci fields make lookups case and diacritic insensitive.
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/vitalmetrics/fitreport/internal/app/system/normalize"
	"github.com/vitalmetrics/fitreport/internal/app/system/status"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicateLoginID reports a login_id that is already taken.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	errBadRole          = errors.New("invalid role")
	errBadStatus        = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLoginID looks a user up through the folded login_id, so the match
// ignores case and diacritics. Returns mongo.ErrNoDocuments when absent.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"login_id_ci": text.Fold(loginID)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks a user up by lowercased email address. Returns
// mongo.ErrNoDocuments when absent.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create normalizes, validates and inserts a user. The name is trimmed,
// login id and email lowercased, and the folded variants derived. A
// missing status defaults to active.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)

	if u.LoginID != nil && *u.LoginID != "" {
		loginID := normalize.Email(*u.LoginID)
		loginIDCI := text.Fold(loginID)
		u.LoginID = &loginID
		u.LoginIDCI = &loginIDCI
	}
	if u.Email != nil && *u.Email != "" {
		email := normalize.Email(*u.Email)
		u.Email = &email
	}

	if u.Status == "" {
		u.Status = status.Active
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateLoginID
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	}})
	return err
}

// UpdateInput carries a partial user update. Nil fields are left alone.
type UpdateInput struct {
	FullName     *string
	LoginID      *string
	Email        *string
	AuthMethod   *string
	Role         *string
	Status       *string
	PasswordHash *string
}

// UpdateFromInput applies the non-nil fields of input, deriving the
// folded variants for the name and login id the same way Create does.
func (s *Store) UpdateFromInput(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}

	if input.FullName != nil {
		set["full_name"] = *input.FullName
		set["full_name_ci"] = text.Fold(*input.FullName)
	}
	if input.LoginID != nil {
		loginID := normalize.Email(*input.LoginID)
		set["login_id"] = loginID
		set["login_id_ci"] = text.Fold(loginID)
	}
	if input.Email != nil {
		set["email"] = normalize.Email(*input.Email)
	}
	if input.AuthMethod != nil {
		set["auth_method"] = *input.AuthMethod
	}
	if input.Role != nil {
		set["role"] = *input.Role
	}
	if input.Status != nil {
		set["status"] = *input.Status
	}
	if input.PasswordHash != nil {
		set["password_hash"] = *input.PasswordHash
	}

	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateLoginID
		}
		return err
	}
	return nil
}
