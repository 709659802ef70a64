package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Booking{}).TableName():        "bookings",
		(Lead{}).TableName():           "leads",
		(Attachment{}).TableName():     "attachments",
		(Service{}).TableName():        "services",
		(City{}).TableName():           "cities",
		(SMSInteraction{}).TableName(): "sms_interactions",
		(Idempotency{}).TableName():    "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestBookingStatus_ValidAndTransitions(t *testing.T) {
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if BookingStatus("archived").Valid() {
		t.Fatalf("unknown status should be invalid")
	}

	allowed := map[[2]BookingStatus]bool{
		{BookingPending, BookingConfirmed}:   true,
		{BookingPending, BookingCancelled}:   true,
		{BookingConfirmed, BookingCompleted}: true,
		{BookingConfirmed, BookingCancelled}: true,
	}
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]BookingStatus{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Fatalf("%s -> %s = %v; want %v", from, to, got, want)
			}
		}
	}
}

func TestClassifyContentType(t *testing.T) {
	cases := map[string]AttachmentType{
		"image/jpeg":        AttachmentPhoto,
		" IMAGE/PNG ":       AttachmentPhoto,
		"video/mp4":         AttachmentVideo,
		"application/pdf":   AttachmentUnknown,
		"":                  AttachmentUnknown,
		"imagex/not-really": AttachmentUnknown,
	}
	for in, want := range cases {
		if got := ClassifyContentType(in); got != want {
			t.Fatalf("ClassifyContentType(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestUTMParams_MergeAndIsZero(t *testing.T) {
	if !(UTMParams{}).IsZero() {
		t.Fatalf("empty UTM should be zero")
	}
	body := UTMParams{Source: " google ", Campaign: ""}
	query := UTMParams{Source: "bing", Medium: "cpc", Campaign: "spring"}
	got := body.Merge(query)
	want := UTMParams{Source: "google", Medium: "cpc", Campaign: "spring"}
	if got != want {
		t.Fatalf("Merge = %+v; want %+v", got, want)
	}
}

func TestCity_DisplayName(t *testing.T) {
	if got := (City{Name: "Provo", State: "UT"}).DisplayName(); got != "Provo, UT" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := (City{Name: "Provo"}).DisplayName(); got != "Provo" {
		t.Fatalf("DisplayName without state = %q", got)
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Lead{}, &Attachment{}, &Booking{}, &SMSInteraction{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&Lead{}, &Attachment{}, &Booking{}, &SMSInteraction{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Booking{}, "idx_bookings_slot") {
		t.Fatalf("expected index idx_bookings_slot on bookings")
	}
	if !m.HasColumn(&Lead{}, "utm_source") || !m.HasColumn(&SMSInteraction{}, "utm_campaign") {
		t.Fatalf("expected embedded utm_* columns")
	}

	now := time.Now().UTC()
	lead := &Lead{ID: "l1", Name: "Ana", Mobile: "8015550123", CreatedAt: now}
	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	att := &Attachment{ID: "a1", LeadID: "l1", URL: "/u/a1.jpg", Type: AttachmentPhoto, CreatedAt: now}
	if err := db.Create(att).Error; err != nil {
		t.Fatalf("insert attachment: %v", err)
	}

	// Attachment must reference an existing lead.
	orphan := &Attachment{ID: "a2", LeadID: "missing", URL: "/u/a2.jpg", Type: AttachmentPhoto, CreatedAt: now}
	if err := db.Create(orphan).Error; err == nil {
		t.Fatalf("expected FK violation for orphan attachment")
	}

	// Check constraint on attachment type.
	bad := &Attachment{ID: "a3", LeadID: "l1", URL: "/u/a3", Type: "document", CreatedAt: now}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check constraint violation for attachment type")
	}

	// Deleting the lead cascades to its attachments.
	if err := db.Delete(&Lead{}, "id = ?", "l1").Error; err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	var n int64
	db.Model(&Attachment{}).Where("lead_id = ?", "l1").Count(&n)
	if n != 0 {
		t.Fatalf("expected attachments cascaded, got %d", n)
	}

	// Booking status check constraint.
	b := &Booking{ID: "b1", SlotDate: "2030-06-01", SlotTime: "10:00", Status: "archived", CreatedAt: now}
	if err := db.Create(b).Error; err == nil {
		t.Fatalf("expected check constraint violation for booking status")
	}
}
