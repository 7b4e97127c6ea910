// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile holds a user's slowly-changing health attributes. One
// document per user; updated only by merge-writes, never deleted.
type Profile struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	Eta             string `bson:"eta,omitempty" json:"eta,omitempty"`                           // age as entered (numeric text)
	Sesso           string `bson:"sesso,omitempty" json:"sesso,omitempty"`                       // "", "Maschio", "Femmina"
	LivelloAttivita string `bson:"livello_attivita,omitempty" json:"livello_attivita,omitempty"` // activity level, default "Sedentario"
	ReportPT        string `bson:"report_pt,omitempty" json:"report_pt,omitempty"`               // trainer notes
	ReportMedici    string `bson:"report_medici,omitempty" json:"report_medici,omitempty"`       // medical notes

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PromptData returns the profile attributes keyed the way the prompt
// builder expects them.
func (p *Profile) PromptData() map[string]string {
	return map[string]string{
		"eta":              p.Eta,
		"sesso":            p.Sesso,
		"livello_attivita": p.LivelloAttivita,
		"report_pt":        p.ReportPT,
		"report_medici":    p.ReportMedici,
	}
}
