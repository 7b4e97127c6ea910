package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Placeholder rendered for any metric with no value.
const Placeholder = "N/D"

// NoHistorySentence appears in the prompt when the user has no prior
// monthly reports.
const NoHistorySentence = "Nessun dato storico disponibile."

// HistoryEntry is one prior monthly report summarized for the trend
// block of the prompt.
type HistoryEntry struct {
	Timestamp time.Time
	Metrics   map[string]string
}

// italianMonths maps time.Month to the it-IT long month name.
var italianMonths = [...]string{
	time.January:   "gennaio",
	time.February:  "febbraio",
	time.March:     "marzo",
	time.April:     "aprile",
	time.May:       "maggio",
	time.June:      "giugno",
	time.July:      "luglio",
	time.August:    "agosto",
	time.September: "settembre",
	time.October:   "ottobre",
	time.November:  "novembre",
	time.December:  "dicembre",
}

// PeriodLabel renders a "YYYY-MM" period as an Italian display label,
// e.g. "Marzo 2024". Malformed periods are returned unchanged.
func PeriodLabel(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	name := italianMonths[t.Month()]
	return strings.ToUpper(name[:1]) + name[1:] + fmt.Sprintf(" %d", t.Year())
}

// valueOr returns the metric value for key, or the N/D placeholder when
// absent or empty.
func valueOr(data map[string]string, key string) string {
	if v := strings.TrimSpace(data[key]); v != "" {
		return v
	}
	return Placeholder
}

// BuildPrompt assembles the full prompt sent to the language model for
// one monthly report. data holds both the profile attributes and the
// current period's metrics; history holds prior reports in any order
// (the builder sorts them oldest first). The function is pure: same
// inputs always produce the same prompt.
//
// Every schema field appears exactly once, in schema order, with its
// unit in the rendered line and N/D substituted for missing values.
func BuildPrompt(period string, data map[string]string, history []HistoryEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sei un esperto di salute e fitness. Analizza i dati forniti per il periodo %q e, se disponibili, confrontali con i dati storici per identificare tendenze e cambiamenti. Fornisci un'analisi dettagliata e consigli personalizzati.\n\n", period)

	b.WriteString("### Dati Anagrafici e Stile di Vita\n")
	for _, f := range ProfileFields() {
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, valueOr(data, f.Key))
	}

	fmt.Fprintf(&b, "\n### Dati di questo Mese (%s)\n", period)
	for _, sec := range Sections() {
		for _, f := range sec.Fields {
			line := "- " + f.Label + ": " + valueOr(data, f.Key)
			if f.Unit != "" {
				line += " " + f.Unit
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n### Dati Storici per l'Analisi delle Tendenze (se disponibili)\n")
	b.WriteString(historyBlock(history))
	b.WriteString("\n\n")

	b.WriteString(`Sulla base di tutti questi dati, genera un report in formato HTML. Rispondi solo con il codice HTML, senza tag di apertura o chiusura di markdown (come ` + "```html" + `) e senza nessun testo aggiuntivo. Il report deve essere strutturato in sezioni chiare con intestazioni (## e ###) e deve coprire i seguenti punti:
1.  **Riepilogo e Analisi Generale:** Un'analisi complessiva dei dati di questo mese e, se presenti, un confronto con le tendenze storiche.
2.  **Analisi Composizione Corporea:** Valuta peso, massa grassa, muscoli, IMC e grasso viscerale.
3.  **Analisi sonno e recupero:** Valuta i dati sul sonno e sulla frequenza cardiaca a riposo.
4.  **Analisi nutrizionale e attività fisica:** Analizza i dati di YAZIO e dell'attività fisica. **Ricorda che l'esercizio totale in kcal è un valore mensile.**
5.  **Punti di Forza e Punti di Debolezza:** Individua i tuoi punti di forza e le aree in cui potresti migliorare.
6.  **Consigli Pratici per il prossimo mese:** Suggerisci 3-5 azioni concrete per ottimizzare i risultati.
`)

	return b.String()
}

// historyBlock renders one line per prior report, oldest first. Sorting
// happens here so callers need not pre-sort.
func historyBlock(history []HistoryEntry) string {
	if len(history) == 0 {
		return NoHistorySentence
	}

	sorted := make([]HistoryEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	lines := make([]string, 0, len(sorted))
	for _, e := range sorted {
		date := fmt.Sprintf("%s %d", italianMonths[e.Timestamp.Month()], e.Timestamp.Year())
		lines = append(lines, fmt.Sprintf("- Data: %s | Peso: %s kg, Massa Grassa: %s %%, FC riposo: %s bpm",
			date, valueOr(e.Metrics, "peso"), valueOr(e.Metrics, "massa_grassa"), valueOr(e.Metrics, "fc_riposo")))
	}
	return strings.Join(lines, "\n")
}
