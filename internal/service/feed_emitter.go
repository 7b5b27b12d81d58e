package service

import (
	"context"
	"time"

	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
)

// FeedEmitter 状态变更后向双方动态流各写一条记录；
// 两条记录同事务落库，不允许只有一方可见的半扇出
type FeedEmitter struct {
	events repository.FeedEventRepository
}

func NewFeedEmitter(events repository.FeedEventRepository) *FeedEmitter {
	return &FeedEmitter{events: events}
}

func (e *FeedEmitter) EmitToBoth(ctx context.Context, userA, userB, partnershipID, message string) error {
	now := time.Now()
	batch := []*model.FeedEvent{
		{UserID: userA, Type: model.FeedEventTypePartnership, RefID: partnershipID, Message: message, CreatedAt: now},
		{UserID: userB, Type: model.FeedEventTypePartnership, RefID: partnershipID, Message: message, CreatedAt: now},
	}
	return e.events.CreateBatch(ctx, batch)
}
