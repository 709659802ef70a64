package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func TestCreateLead_AndAttachments(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	l := &domain.Lead{
		Name:   "Ada",
		Mobile: "5551234567",
		UTM:    domain.UTMParams{Source: "google", Campaign: "spring"},
		// Attachments are never written through CreateLead.
		Attachments: []domain.Attachment{{URL: "ignored"}},
	}
	if err := CreateLead(ctx, db, l); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if l.ID == "" || l.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", l)
	}

	got, err := GetLead(ctx, db, l.ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.UTM.Source != "google" || got.UTM.Campaign != "spring" {
		t.Fatalf("utm not persisted: %+v", got.UTM)
	}
	if atts, _ := ListAttachments(ctx, db, l.ID); len(atts) != 0 {
		t.Fatalf("expected no attachments from CreateLead, got %d", len(atts))
	}

	for _, name := range []string{"a.jpg", "b.mp4"} {
		a := &domain.Attachment{
			LeadID:   l.ID,
			URL:      "/uploads/" + name,
			Filename: name,
			Type:     domain.AttachmentPhoto,
		}
		if err := CreateAttachment(ctx, db, a); err != nil {
			t.Fatalf("CreateAttachment: %v", err)
		}
	}
	atts, err := ListAttachments(ctx, db, l.ID)
	if err != nil || len(atts) != 2 {
		t.Fatalf("ListAttachments = %d, %v; want 2", len(atts), err)
	}
}

func TestCreateAttachment_UnknownLeadRejected(t *testing.T) {
	db := newTestDB(t, true)
	a := &domain.Attachment{LeadID: "nope", URL: "/x", Type: domain.AttachmentUnknown}
	if err := CreateAttachment(context.Background(), db, a); err == nil {
		t.Fatalf("expected FK violation")
	}
}

func TestGetLead_NotFound(t *testing.T) {
	db := newTestDB(t, true)
	if _, err := GetLead(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
