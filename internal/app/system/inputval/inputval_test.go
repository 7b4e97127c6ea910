package inputval

import "testing"

func TestValidate(t *testing.T) {
	type siteInput struct {
		SiteName     string `validate:"required" label:"Site name"`
		ContactEmail string `validate:"required,email" label:"Contact email"`
	}

	tests := []struct {
		name      string
		input     siteInput
		wantError bool
	}{
		{
			name:      "valid input",
			input:     siteInput{SiteName: "FitReport", ContactEmail: "info@example.com"},
			wantError: false,
		},
		{
			name:      "missing site name",
			input:     siteInput{ContactEmail: "info@example.com"},
			wantError: true,
		},
		{
			name:      "missing email",
			input:     siteInput{SiteName: "FitReport"},
			wantError: true,
		},
		{
			name:      "invalid email",
			input:     siteInput{SiteName: "FitReport", ContactEmail: "not-an-email"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if tt.wantError && !result.HasErrors() {
				t.Errorf("Validate() expected errors, got none")
			}
			if !tt.wantError && result.HasErrors() {
				t.Errorf("Validate() expected no errors, got: %s", result.First())
			}
		})
	}
}

func TestValidate_MinMaxRules(t *testing.T) {
	type lengthInput struct {
		Short string `validate:"min=3" label:"Short field"`
		Long  string `validate:"max=5" label:"Long field"`
	}

	result := Validate(lengthInput{Short: "abc", Long: "12345"})
	if result.HasErrors() {
		t.Errorf("valid lengths should pass, got: %s", result.First())
	}

	result = Validate(lengthInput{Short: "ab", Long: "123"})
	if !result.HasErrors() {
		t.Error("short=ab should fail min=3")
	}

	result = Validate(lengthInput{Short: "abcd", Long: "123456"})
	if !result.HasErrors() {
		t.Error("long=123456 should fail max=5")
	}
}

func TestValidate_OneOfRule(t *testing.T) {
	type enumInput struct {
		Status string `validate:"oneof=active disabled" label:"Status"`
	}

	result := Validate(enumInput{Status: "active"})
	if result.HasErrors() {
		t.Errorf("oneof=active should be valid, got: %s", result.First())
	}

	result = Validate(enumInput{Status: "deleted"})
	if !result.HasErrors() {
		t.Error("oneof=deleted should fail")
	}
}

func TestValidate_PointerStruct(t *testing.T) {
	type input struct {
		Name string `validate:"required" label:"Name"`
	}

	result := Validate(&input{Name: "Mario"})
	if result.HasErrors() {
		t.Errorf("pointer struct should validate, got: %s", result.First())
	}
}

func TestValidate_NonStruct(t *testing.T) {
	if result := Validate("not a struct"); result == nil {
		t.Error("Validate() non-struct should return non-nil result")
	}
}

func TestValidate_LabelFromJSONTag(t *testing.T) {
	type input struct {
		FullName string `json:"full_name" validate:"required" label:"Nome completo"`
	}

	result := Validate(input{})
	if !result.HasErrors() {
		t.Fatal("empty FullName should fail")
	}
	if result.First() != "Nome completo è obbligatorio." {
		t.Errorf("error message = %q, want label-based message", result.First())
	}
}

func TestValidate_NoLabelFallsBackToFieldName(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
	}

	result := Validate(input{})
	if !result.HasErrors() {
		t.Fatal("empty Name should fail")
	}
	if result.First() != "Name è obbligatorio." {
		t.Errorf("error message = %q, want field name message", result.First())
	}
}

func TestResult_Accessors(t *testing.T) {
	empty := &Result{}
	if empty.HasErrors() {
		t.Error("empty result should have no errors")
	}
	if empty.First() != "" || empty.All() != "" {
		t.Error("empty result messages should be empty strings")
	}

	r := &Result{
		Errors: []FieldError{
			{Field: "site_name", Label: "Nome del sito", Message: "Nome del sito è obbligatorio."},
			{Field: "footer_html", Label: "HTML del footer", Message: "HTML del footer non può superare 10000 caratteri."},
		},
	}
	if !r.HasErrors() {
		t.Error("result with errors should report HasErrors")
	}
	if got := r.First(); got != "Nome del sito è obbligatorio." {
		t.Errorf("First() = %q", got)
	}
	want := "Nome del sito è obbligatorio.; HTML del footer non può superare 10000 caratteri."
	if got := r.All(); got != want {
		t.Errorf("All() = %q, want %q", got, want)
	}
}
