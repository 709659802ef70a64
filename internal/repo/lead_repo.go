package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// CreateLead inserts l without its attachments; those are recorded one by
// one with CreateAttachment after upload.
func CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Omit("Attachments").Create(l).Error
}

// GetLead fetches a lead by ID, or ErrNotFound.
func GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateAttachment records a single uploaded file for a lead.
func CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Omit("Lead").Create(a).Error
}

// ListAttachments returns a lead's attachments in upload order.
func ListAttachments(ctx context.Context, db *gorm.DB, leadID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at ASC").Find(&out).Error
	return out, err
}
