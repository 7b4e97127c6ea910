// Package report holds the monthly report domain: the metric schema that
// drives both the input form and the prompt sent to the language model,
// the prompt builder itself, and the markdown-to-HTML formatter applied
// to generated report text.
package report

// Field kinds, used by the form renderer to pick an input type.
const (
	KindNumber = "number"
	KindText   = "text"
)

// Field is one metric on the monthly form. Unit is the suffix rendered
// after the value in the prompt ("kg", "bpm", ...); empty means none.
type Field struct {
	Key   string
	Label string
	Unit  string
	Kind  string
}

// Section is an ordered group of fields shown together on the form and
// rendered together in the prompt.
type Section struct {
	Title  string
	Fields []Field
}

// sections is the single source of truth for metric keys, labels, units
// and ordering. The form renderer and the prompt builder both walk this
// slice, so the two cannot drift apart.
var sections = []Section{
	{
		Title: "Composizione Corporea",
		Fields: []Field{
			{Key: "peso", Label: "Peso", Unit: "kg", Kind: KindNumber},
			{Key: "imc", Label: "IMC", Kind: KindNumber},
			{Key: "massa_grassa", Label: "Massa Grassa", Unit: "%", Kind: KindNumber},
			{Key: "acqua", Label: "Acqua", Unit: "%", Kind: KindNumber},
			{Key: "metabolismo_basale", Label: "Metabolismo Basale", Unit: "kcal", Kind: KindNumber},
			{Key: "grasso_viscerale", Label: "Grasso Viscerale", Kind: KindNumber},
			{Key: "muscoli", Label: "Muscoli", Unit: "kg", Kind: KindNumber},
			{Key: "proteine", Label: "Proteine", Unit: "%", Kind: KindNumber},
			{Key: "massa_ossea", Label: "Massa Ossea", Unit: "kg", Kind: KindNumber},
		},
	},
	{
		Title: "Attività e Sonno",
		Fields: []Field{
			{Key: "esercizio_kcal", Label: "Esercizio Totale", Unit: "kcal (valore totale per il mese)", Kind: KindNumber},
			{Key: "fc_riposo", Label: "FC a riposo", Unit: "bpm", Kind: KindNumber},
			{Key: "fc_min_max", Label: "FC min/max", Unit: "bpm", Kind: KindText},
			{Key: "riposo_punti", Label: "Media Riposo Notturno", Unit: "punti", Kind: KindNumber},
			{Key: "media_sonno_ore", Label: "Media Sonno", Kind: KindText},
			{Key: "sonno_profondo_perc", Label: "Sonno Profondo", Unit: "%", Kind: KindNumber},
			{Key: "sonno_leggero_perc", Label: "Sonno Leggero", Unit: "%", Kind: KindNumber},
			{Key: "sonno_rem_perc", Label: "Sonno REM", Unit: "%", Kind: KindNumber},
			{Key: "regolarita_sonno", Label: "Regolarità Sonno", Unit: "punti", Kind: KindNumber},
			{Key: "stress_medio", Label: "Stress Medio", Unit: "punti", Kind: KindNumber},
			{Key: "spo2", Label: "SPo2 Mensile", Unit: "%", Kind: KindNumber},
			{Key: "temp_cutanea", Label: "Temp. Cutanea", Unit: "°C", Kind: KindNumber},
		},
	},
	{
		Title: "Nutrizione e Passi",
		Fields: []Field{
			{Key: "energia_alimentare", Label: "Energia Alimentare", Unit: "kcal/giorno", Kind: KindNumber},
			{Key: "carboidrati", Label: "Carboidrati", Unit: "g/giorno", Kind: KindNumber},
			{Key: "proteine_yazio", Label: "Proteine (Yazio)", Unit: "g/giorno", Kind: KindNumber},
			{Key: "grassi", Label: "Grassi", Unit: "g/giorno", Kind: KindNumber},
			{Key: "acqua_yazio", Label: "Acqua (Yazio)", Unit: "L/giorno", Kind: KindNumber},
			{Key: "passi", Label: "Passi medi", Unit: "al giorno", Kind: KindNumber},
		},
	},
}

// Sections returns the ordered form sections.
func Sections() []Section { return sections }

// MetricKeys returns every metric key in schema order.
func MetricKeys() []string {
	keys := make([]string, 0, 32)
	for _, sec := range sections {
		for _, f := range sec.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// IsMetricKey reports whether k is a recognized metric key.
func IsMetricKey(k string) bool {
	for _, sec := range sections {
		for _, f := range sec.Fields {
			if f.Key == k {
				return true
			}
		}
	}
	return false
}

// Activity level options for the profile, in display order.
var ActivityLevels = []string{"Sedentario", "Leggermente Attivo", "Attivo", "Molto Attivo"}

// Biological sex options for the profile. Empty means unset.
var SexOptions = []string{"Maschio", "Femmina"}

// ProfileField is one slowly-changing attribute edited on the profile
// page and echoed into the prompt's personal-data block.
type ProfileField struct {
	Key       string
	Label     string
	Options   []string // non-nil renders as a select
	Multiline bool
}

var profileFields = []ProfileField{
	{Key: "eta", Label: "Età"},
	{Key: "sesso", Label: "Sesso Biologico", Options: SexOptions},
	{Key: "livello_attivita", Label: "Livello di Attività Fisica", Options: ActivityLevels},
	{Key: "report_pt", Label: "Report Personal Trainer", Multiline: true},
	{Key: "report_medici", Label: "Referti Medici", Multiline: true},
}

// ProfileFields returns the ordered profile attributes.
func ProfileFields() []ProfileField { return profileFields }
