// internal/domain/models/sitesettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings is the admin-editable site configuration: the name in
// the header, the landing page text and the footer markup, plus a note
// of who saved it last.
type SiteSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	SiteName string `bson:"site_name" json:"site_name"`

	LandingTitle   string `bson:"landing_title,omitempty" json:"landing_title,omitempty"`
	LandingContent string `bson:"landing_content,omitempty" json:"landing_content,omitempty"`

	FooterHTML string `bson:"footer_html,omitempty" json:"footer_html,omitempty"`

	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
}

// Defaults used until an admin saves settings for the first time.
const DefaultSiteName = "FitReport"

const DefaultFooterHTML = "Powered by FitReport"

const DefaultLandingTitle = "Benvenuto"

const DefaultLandingContent = `<p>Registra i tuoi dati di salute e fitness ogni mese e ricevi un report personalizzato generato dall'IA.</p>
<p>Accedi per inserire i dati del mese o consultare l'archivio dei report.</p>`
