package notification

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"telecompm_backend/internal/events"
	"telecompm_backend/internal/notification/inapp"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
)

type sentMail struct {
	kind string
	to   string
	body string
}

type recordingSender struct {
	mails []sentMail
	fail  bool
}

func (r *recordingSender) record(kind, to string, parts ...string) error {
	if r.fail {
		return fmt.Errorf("smtp unavailable")
	}
	r.mails = append(r.mails, sentMail{kind: kind, to: to, body: strings.Join(parts, " ")})
	return nil
}

func (r *recordingSender) SendVisitSubmittedEmail(_ context.Context, to, visitNumber, siteCode, engineerName string) error {
	return r.record("submitted", to, visitNumber, siteCode, engineerName)
}

func (r *recordingSender) SendVisitApprovedEmail(_ context.Context, to, engineerName, visitNumber, reviewerName string) error {
	return r.record("approved", to, engineerName, visitNumber, reviewerName)
}

func (r *recordingSender) SendVisitRejectedEmail(_ context.Context, to, engineerName, visitNumber, reviewerName, reason string) error {
	return r.record("rejected", to, engineerName, visitNumber, reviewerName, reason)
}

func (r *recordingSender) SendVisitCorrectionEmail(_ context.Context, to, engineerName, visitNumber, reviewerName, notes string) error {
	return r.record("correction", to, engineerName, visitNumber, reviewerName, notes)
}

func (r *recordingSender) SendLowStockAlertEmail(_ context.Context, to, materialName, unit string, current, minimum float64) error {
	return r.record("low_stock", to, materialName, unit)
}

func (r *recordingSender) SendCustomEmail(_ context.Context, to, subject, htmlContent string) error {
	return r.record("custom", to, subject)
}

type stubDirectory struct {
	name string
	mail string
	err  error
}

func (s stubDirectory) ContactInfo(context.Context, uuid.UUID) (string, string, error) {
	return s.name, s.mail, s.err
}

type stubSites struct{ code string }

func (s stubSites) SiteCode(context.Context, uuid.UUID) (string, error) { return s.code, nil }

type recordingInbox struct {
	sent []inapp.SendParams
}

func (r *recordingInbox) Send(_ context.Context, p inapp.SendParams) error {
	r.sent = append(r.sent, p)
	return nil
}

type stubConfig struct{ ops string }

func (c stubConfig) GetAppBaseURL() string      { return "http://localhost:4200" }
func (c stubConfig) GetOpsEmailAddress() string { return c.ops }

func newTestModule(sender *recordingSender, inbox *recordingInbox, ops string) *Module {
	return &Module{
		sender:    sender,
		engineers: stubDirectory{name: "Lina Aziz", mail: "lina@telecompm.example"},
		sites:     stubSites{code: "RAM-001"},
		inApp:     inbox,
		cfg:       stubConfig{ops: ops},
		log:       logger.New("test"),
	}
}

func TestVisitRejectedNotifiesEngineerByMailAndInbox(t *testing.T) {
	sender := &recordingSender{}
	inbox := &recordingInbox{}
	m := newTestModule(sender, inbox, "ops@telecompm.example")

	visitID := uuid.New()
	err := m.Handle(context.Background(), events.VisitRejected{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      visitID,
		VisitNumber:  "V2026000007",
		EngineerID:   uuid.New(),
		ReviewerName: "Omar Haddad",
		Reason:       "Generator photos missing",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.mails) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.mails))
	}
	mail := sender.mails[0]
	if mail.kind != "rejected" || mail.to != "lina@telecompm.example" {
		t.Errorf("mail = %+v, want rejected mail to engineer", mail)
	}
	if !strings.Contains(mail.body, "Generator photos missing") {
		t.Errorf("mail body %q missing rejection reason", mail.body)
	}

	if len(inbox.sent) != 1 {
		t.Fatalf("wrote %d inbox messages, want 1", len(inbox.sent))
	}
	if inbox.sent[0].Category != "error" || inbox.sent[0].ResourceType != "visit" {
		t.Errorf("inbox message = %+v, want error/visit", inbox.sent[0])
	}
	if inbox.sent[0].ResourceID == nil || *inbox.sent[0].ResourceID != visitID {
		t.Error("inbox message should reference the visit")
	}
}

func TestVisitSubmittedMailsOpsWithSiteCode(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender, &recordingInbox{}, "ops@telecompm.example")

	err := m.Handle(context.Background(), events.VisitSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     uuid.New(),
		VisitNumber: "V2026000008",
		SiteID:      uuid.New(),
		EngineerID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.mails) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.mails))
	}
	if sender.mails[0].to != "ops@telecompm.example" {
		t.Errorf("to = %q, want ops address", sender.mails[0].to)
	}
	if !strings.Contains(sender.mails[0].body, "RAM-001") {
		t.Errorf("body %q missing resolved site code", sender.mails[0].body)
	}
}

func TestSubmittedSkippedWithoutOpsAddress(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender, &recordingInbox{}, "")

	err := m.Handle(context.Background(), events.VisitSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		VisitNumber: "V2026000009",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.mails) != 0 {
		t.Errorf("sent %d mails, want 0 when ops address unset", len(sender.mails))
	}
}

func TestLowStockAlertMailsOps(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender, &recordingInbox{}, "ops@telecompm.example")

	err := m.Handle(context.Background(), events.LowStockAlert{
		BaseEvent:    events.NewBaseEvent(),
		MaterialID:   uuid.New(),
		MaterialName: "Fiber patch cable",
		CurrentStock: 3,
		MinimumStock: 10,
		Unit:         "pcs",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.mails) != 1 || sender.mails[0].kind != "low_stock" {
		t.Fatalf("mails = %+v, want one low_stock mail", sender.mails)
	}
}

func TestSiteAssignedWritesInboxOnly(t *testing.T) {
	sender := &recordingSender{}
	inbox := &recordingInbox{}
	m := newTestModule(sender, inbox, "ops@telecompm.example")

	engineerID := uuid.New()
	err := m.Handle(context.Background(), events.SiteAssigned{
		BaseEvent:  events.NewBaseEvent(),
		SiteID:     uuid.New(),
		EngineerID: engineerID,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.mails) != 0 {
		t.Errorf("sent %d mails, want 0", len(sender.mails))
	}
	if len(inbox.sent) != 1 || inbox.sent[0].UserID != engineerID {
		t.Fatalf("inbox = %+v, want one message for the engineer", inbox.sent)
	}
	if !strings.Contains(inbox.sent[0].Content, "RAM-001") {
		t.Errorf("content %q missing site code", inbox.sent[0].Content)
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	sender := &recordingSender{fail: true}
	m := newTestModule(sender, &recordingInbox{}, "ops@telecompm.example")

	err := m.Handle(context.Background(), events.LowStockAlert{
		BaseEvent:    events.NewBaseEvent(),
		MaterialName: "Rectifier fuse",
	})
	if err == nil {
		t.Fatal("expected delivery error to propagate")
	}
}
