package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// CreateSMSInteraction inserts an interaction row. The generated ID doubles
// as the interactionId reported to clients.
func CreateSMSInteraction(ctx context.Context, db *gorm.DB, in *domain.SMSInteraction) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	in.CreatedAt, in.UpdatedAt = now, now
	return db.WithContext(ctx).Create(in).Error
}

// FinishSMSInteraction records the provider outcome for a send.
func FinishSMSInteraction(ctx context.Context, db *gorm.DB, id, status, providerID, errMsg string) error {
	res := db.WithContext(ctx).Model(&domain.SMSInteraction{}).Where("id = ?", id).Updates(map[string]any{
		"status":              status,
		"provider_message_id": providerID,
		"error":               errMsg,
		"updated_at":          time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
