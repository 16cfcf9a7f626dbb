package followup

import (
	"strings"
	"testing"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/pkg/validator"
)

func assess(fields domain.ContactFields) domain.RecordAssessment {
	a := domain.RecordAssessment{Fields: validator.Fields(fields)}
	if a.AllValid() {
		a.Disposition = domain.DispositionAutoApproved
	} else {
		a.Disposition = domain.DispositionNeedsReview
	}
	return a
}

func TestCompose_NamesEveryInvalidField(t *testing.T) {
	record := domain.ExtractedRecord{
		EmailID:      "E2",
		Sender:       "customer@example.com",
		SAPID:        "",
		ContactName:  "John",
		ContactEmail: "bad",
		ContactPhone: "123",
	}
	composer := New("reviewers@example.com")

	msg := composer.Compose(record, assess(record.Fields()))

	for _, label := range []string{"SAP ID", "Contact Name", "Email", "Phone"} {
		if !strings.Contains(msg.Body, label) {
			t.Fatalf("body does not mention %q:\n%s", label, msg.Body)
		}
	}
	if msg.Subject != DefaultSubject {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.EmailID != "E2" {
		t.Fatalf("message must reference the record, got %q", msg.EmailID)
	}
	if msg.Status != domain.OutgoingPending {
		t.Fatalf("expected pending status, got %s", msg.Status)
	}
}

func TestCompose_AddressesValidContactEmail(t *testing.T) {
	record := domain.ExtractedRecord{
		EmailID:      "E3",
		Sender:       "forwarder@example.com",
		ContactName:  "jane doe",
		ContactEmail: "jane@example.com",
	}
	msg := New("reviewers@example.com").Compose(record, assess(record.Fields()))

	if msg.ToEmail != "jane@example.com" {
		t.Fatalf("expected contact email recipient, got %q", msg.ToEmail)
	}
	if !strings.Contains(msg.Body, "Hi Jane,") {
		t.Fatalf("expected greeting with first name:\n%s", msg.Body)
	}
}

func TestCompose_FallsBackToSenderThenReviewer(t *testing.T) {
	record := domain.ExtractedRecord{
		EmailID:      "E4",
		Sender:       "customer@example.com",
		ContactEmail: "not-an-address",
	}
	msg := New("reviewers@example.com").Compose(record, assess(record.Fields()))
	if msg.ToEmail != "customer@example.com" {
		t.Fatalf("expected sender fallback, got %q", msg.ToEmail)
	}

	record.Sender = "also broken"
	msg = New("reviewers@example.com").Compose(record, assess(record.Fields()))
	if msg.ToEmail != "reviewers@example.com" {
		t.Fatalf("expected reviewer fallback, got %q", msg.ToEmail)
	}
}

func TestCompose_ReferencesAccountWhenKnown(t *testing.T) {
	record := domain.ExtractedRecord{
		EmailID:     "E5",
		Sender:      "customer@example.com",
		SAPID:       "sap123456",
		ContactName: "John Smith",
	}
	msg := New("reviewers@example.com").Compose(record, assess(record.Fields()))
	if !strings.Contains(msg.Body, "SAP123456") {
		t.Fatalf("expected normalized account reference:\n%s", msg.Body)
	}
}
