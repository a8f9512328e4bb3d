// Package report renders SARs as plain-text documents for submission and
// case files.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"amlcore/internal/aml/sar/models"
	id "amlcore/pkg/domain"
)

const width = 60

var funcs = template.FuncMap{
	"ts":    func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") + " UTC" },
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
	"actor": func(a id.ActorID) string {
		if a.IsNil() {
			return "N/A"
		}
		return a.String()
	},
	"dflt": func(s, fallback string) string {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	},
	"heavy":     func() string { return strings.Repeat("=", width) },
	"light":     func() string { return strings.Repeat("-", width) },
	"inc":       func(i int) int { return i + 1 },
	"deref":     func(a *id.ActorID) id.ActorID { return *a },
	"derefTime": func(t *time.Time) time.Time { return *t },
}

var tmpl = template.Must(template.New("sar").Funcs(funcs).Parse(`{{heavy}}
SUSPICIOUS ACTIVITY REPORT
{{heavy}}

Reference Number: {{.ReferenceNumber}}
Report ID: {{.ID}}
Status: {{.Status}}
Priority: {{.Priority}}
Created: {{ts .CreatedAt}}
Created By: {{actor .CreatedBy}}
Due Date: {{date .DueDate}}
Assigned To: {{if .AssignedTo}}{{actor (deref .AssignedTo)}} (since {{ts (derefTime .AssignedAt)}}){{else}}Unassigned{{end}}

{{light}}
SUBJECT INFORMATION
{{light}}
Name: {{.SubjectName}}
Identity ID: {{.SubjectID}}

{{light}}
ACTIVITY DETAILS
{{light}}
Trigger: {{.Trigger}}
Type: {{.Type}}
Activity Detected: {{ts .ActivityDetectedAt}}

Narrative:
{{.Narrative}}

{{light}}
EVIDENCE ({{len .Evidence}})
{{light}}
{{- range $i, $e := .Evidence}}
{{inc $i}}. [{{$e.Kind}}] {{$e.Description}}
   Reference: {{dflt $e.Reference "N/A"}}
   Added: {{ts $e.AddedAt}} by {{actor $e.AddedBy}}
{{- else}}
None
{{- end}}

{{light}}
RELATED TRANSACTIONS ({{len .RelatedTransactions}})
{{light}}
{{- range $i, $t := .RelatedTransactions}}
{{inc $i}}. {{$t.TransactionID}}: {{money $t.Amount}} {{$t.Currency}} on {{ts $t.OccurredAt}}
   Counterparty: {{dflt $t.Counterparty "N/A"}}
   Description: {{dflt $t.Description "N/A"}}
{{- else}}
None
{{- end}}

{{light}}
WORKFLOW HISTORY
{{light}}
{{- range .History}}
{{ts .At}} {{.From}} -> {{.To}} by {{actor .PerformedBy}}{{if .Comments}}: {{.Comments}}{{end}}
{{- end}}
{{- if .FiledAt}}

{{light}}
FILING INFORMATION
{{light}}
Filed: {{ts (derefTime .FiledAt)}}
Filed With: {{.FiledWith}}
Confirmation: {{.ConfirmationNumber}}
Deadline Met: {{yesno .DeadlineMet}}
{{- end}}
`))

// Render produces the UTF-8 text document for sar. The same SAR state always
// renders to the same bytes.
func Render(sar *models.SuspiciousActivityReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, sar); err != nil {
		return nil, fmt.Errorf("render SAR %s: %w", sar.ReferenceNumber, err)
	}
	return buf.Bytes(), nil
}
