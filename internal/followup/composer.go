// Package followup composes correction-request messages for records with
// missing or invalid fields. Composition is a pure function of the record,
// its assessment and the template; delivery belongs to the external sink.
package followup

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/pkg/validator"
)

// DefaultSubject matches the workshop's customer-facing wording.
const DefaultSubject = "Additional Information Needed - SAP Account Update Request"

var bodyTemplate = template.Must(template.New("followup").Parse(`Hi {{.Greeting}},

Thank you for contacting us about updating your SAP account information.

We received your request for account {{.AccountRef}}, but we need some additional information or corrections to process it:

{{range .Issues}}  - {{.}}
{{end}}
Please reply to this email with the corrected information in the following format:

SAP Account ID: SAP123456
Contact Name: First Last
Contact Email: name@example.com
Contact Phone: (555) 123-4567

We'll process your update as soon as we receive the complete information.

Best regards,
Customer Service Team
`))

// Composer builds follow-up messages. FallbackAddress receives messages for
// records whose contact email is itself invalid; it should point at a
// reviewer-facing inbox, not a customer.
type Composer struct {
	FallbackAddress string
}

func New(fallbackAddress string) *Composer {
	return &Composer{FallbackAddress: fallbackAddress}
}

type templateData struct {
	Greeting   string
	AccountRef string
	Issues     []string
}

// Compose renders a follow-up for the record, naming every missing or
// invalid field. The message is addressed to the record's contact email when
// that field is valid, to the sender otherwise, and to the configured
// fallback when neither is usable.
func (c *Composer) Compose(record domain.ExtractedRecord, assessment domain.RecordAssessment) domain.OutgoingMessage {
	data := templateData{
		Greeting:   "there",
		AccountRef: "[your account]",
	}
	if fv := assessment.Fields[domain.FieldContactName]; fv.Valid {
		data.Greeting = strings.Fields(fv.Normalized)[0]
	} else if name := strings.Fields(record.ContactName); len(name) > 0 {
		data.Greeting = name[0]
	}
	if fv := assessment.Fields[domain.FieldSAPID]; fv.Valid {
		data.AccountRef = fv.Normalized
	} else if strings.TrimSpace(record.SAPID) != "" {
		data.AccountRef = strings.TrimSpace(record.SAPID)
	}
	for _, fv := range assessment.Invalid() {
		data.Issues = append(data.Issues, fmt.Sprintf("%s: %s", fieldLabel(fv.Field), fv.Detail))
	}
	if assessment.RejectReason != "" {
		data.Issues = append(data.Issues, assessment.RejectReason)
	}

	var body strings.Builder
	// The template only references fields of templateData; execution cannot fail.
	_ = bodyTemplate.Execute(&body, data)

	return domain.OutgoingMessage{
		EmailID:   record.EmailID,
		ToEmail:   c.recipient(record),
		Subject:   DefaultSubject,
		Body:      body.String(),
		Status:    domain.OutgoingPending,
	}
}

func (c *Composer) recipient(record domain.ExtractedRecord) string {
	if fv := validator.Email(record.ContactEmail); fv.Valid {
		return fv.Normalized
	}
	if fv := validator.Email(record.Sender); fv.Valid {
		return fv.Normalized
	}
	return c.FallbackAddress
}

func fieldLabel(field string) string {
	switch field {
	case domain.FieldSAPID:
		return "SAP ID"
	case domain.FieldContactName:
		return "Contact Name"
	case domain.FieldContactEmail:
		return "Email"
	case domain.FieldContactPhone:
		return "Phone"
	default:
		return field
	}
}
