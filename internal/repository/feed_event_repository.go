package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
)

// FeedEventRepository 动态流记录：批量插入要么全部落库要么全部失败
type FeedEventRepository interface {
	CreateBatch(ctx context.Context, events []*model.FeedEvent) error
	ListForUser(ctx context.Context, userID string, offset, limit int) ([]*model.FeedEvent, error)
}

type feedEventRepository struct {
	db *gorm.DB
}

func NewFeedEventRepository(db *gorm.DB) FeedEventRepository {
	return &feedEventRepository{db: db}
}

func (r *feedEventRepository) CreateBatch(ctx context.Context, events []*model.FeedEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&events).Error
	})
}

func (r *feedEventRepository) ListForUser(ctx context.Context, userID string, offset, limit int) ([]*model.FeedEvent, error) {
	var res []*model.FeedEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
