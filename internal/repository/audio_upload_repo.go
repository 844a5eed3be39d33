package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/interview-sim-api/internal/models"
)

// AudioUploadRepository persists metadata about uploaded answer recordings.
type AudioUploadRepository interface {
	Create(ctx context.Context, record *models.AudioUpload) error
	ListBySession(ctx context.Context, sessionKey string, limit int) ([]models.AudioUpload, error)
}

type audioUploadRepository struct {
	db *gorm.DB
}

// NewAudioUploadRepository constructs a repository for audio upload records.
func NewAudioUploadRepository(db *gorm.DB) AudioUploadRepository {
	return &audioUploadRepository{db: db}
}

func (r *audioUploadRepository) Create(ctx context.Context, record *models.AudioUpload) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *audioUploadRepository) ListBySession(ctx context.Context, sessionKey string, limit int) ([]models.AudioUpload, error) {
	query := r.db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.AudioUpload
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
