// internal/app/system/viewdata/viewdata.go

// Package viewdata builds the BaseVM every page template starts from:
// site settings, the signed-in user and the CSRF token.
package viewdata

import (
	"context"
	"html/template"
	"net/http"

	settingsstore "github.com/vitalmetrics/fitreport/internal/app/store/settings"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/authz"
	"github.com/vitalmetrics/fitreport/internal/app/system/htmlsanitize"
	"github.com/vitalmetrics/fitreport/internal/app/system/timeouts"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
)

// BaseVM carries the fields shared by every page. Feature view models
// embed it:
//
//	type myPageVM struct {
//	    viewdata.BaseVM
//	    // page fields...
//	}
type BaseVM struct {
	SiteName   string
	FooterHTML template.HTML

	IsLoggedIn bool
	UserID     string
	LoginID    string
	Role       string
	UserName   string

	Title       string
	BackURL     string
	CurrentPath string

	CSRFToken string
}

// globalDB is installed by Init once the database is connected. New
// tolerates a nil database, which keeps handler tests independent of the
// settings collection.
var globalDB *mongo.Database

// Init wires the database used to load site settings. Called once from
// bootstrap.
func Init(db *mongo.Database) {
	globalDB = db
}

// New assembles the BaseVM for a request: user context from the auth
// middleware, site name and footer from the settings store.
func New(r *http.Request) BaseVM {
	role, name, userID, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		IsLoggedIn:  signedIn,
		UserID:      userID.Hex(),
		Role:        role,
		UserName:    name,
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if signedIn {
		if user, ok := auth.CurrentUser(r); ok {
			vm.LoginID = user.LoginID
		}
	}

	if globalDB == nil {
		return vm
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, err := settingsstore.New(globalDB).Get(ctx)
	if err != nil || settings == nil {
		return vm
	}

	vm.SiteName = settings.SiteName
	footer := settings.FooterHTML
	if footer == "" {
		footer = models.DefaultFooterHTML
	}
	vm.FooterHTML = htmlsanitize.SanitizeToHTML(footer)

	return vm
}
