package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
)

var (
	// ErrStaleStatus 条件写命中 0 行：读到的状态在写入前已被并发方改掉
	ErrStaleStatus = errors.New("partnership status changed concurrently")
	// ErrSlotTaken partner_slots 唯一键冲突：参与者已有 accepted 搭档
	ErrSlotTaken = errors.New("participant already holds an accepted partnership")
	// ErrDuplicatePair 同一对用户已存在 pending/accepted 记录
	ErrDuplicatePair = errors.New("active partnership already exists for pair")
)

// PartnershipRepository 搭档行的全部读写口径；所有写都是
// 「条件更新 + 唯一索引兜底」，不依赖读到的状态仍然有效
type PartnershipRepository interface {
	GetByID(ctx context.Context, id string) (*model.Partnership, error)
	// GetActiveBetween 返回两人之间 pending/accepted 的唯一记录，无则 (nil, nil)
	GetActiveBetween(ctx context.Context, u, v string) (*model.Partnership, error)
	// GetAcceptedForUser 返回用户当前 accepted 记录，无则 (nil, nil)
	GetAcceptedForUser(ctx context.Context, userID string) (*model.Partnership, error)
	ListIncomingPending(ctx context.Context, userID string) ([]*model.Partnership, error)
	ListOutgoingPending(ctx context.Context, userID string) ([]*model.Partnership, error)
	Create(ctx context.Context, p *model.Partnership) error
	// MarkAccepted 原子提交 accepted：条件更新状态 + 同事务写入双方 slot
	MarkAccepted(ctx context.Context, p *model.Partnership, at time.Time) error
	// MarkDeclined pending → declined
	MarkDeclined(ctx context.Context, id string, at time.Time) error
	// MarkCancelled {pending,accepted} → cancelled，同事务无条件释放该记录的 slot。
	// 删除按 partnership_id 幂等，不依赖调用方读到的旧状态：
	// 读到 pending 之后对端可能已并发 accept 并写入 slot
	MarkCancelled(ctx context.Context, id string, at time.Time) error
}

type partnershipRepository struct {
	db *gorm.DB
}

func NewPartnershipRepository(db *gorm.DB) PartnershipRepository {
	return &partnershipRepository{db: db}
}

func (r *partnershipRepository) GetByID(ctx context.Context, id string) (*model.Partnership, error) {
	var p model.Partnership
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partnershipRepository) GetActiveBetween(ctx context.Context, u, v string) (*model.Partnership, error) {
	var p model.Partnership
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND status IN ?", model.PairKeyOf(u, v),
			[]model.PartnershipStatus{model.PartnershipPending, model.PartnershipAccepted}).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partnershipRepository) GetAcceptedForUser(ctx context.Context, userID string) (*model.Partnership, error) {
	var p model.Partnership
	err := r.db.WithContext(ctx).
		Where("status = ? AND (user_a_id = ? OR user_b_id = ?)", model.PartnershipAccepted, userID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partnershipRepository) ListIncomingPending(ctx context.Context, userID string) ([]*model.Partnership, error) {
	var res []*model.Partnership
	err := r.db.WithContext(ctx).
		Where("status = ? AND (user_a_id = ? OR user_b_id = ?) AND requested_by <> ?",
			model.PartnershipPending, userID, userID, userID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

func (r *partnershipRepository) ListOutgoingPending(ctx context.Context, userID string) ([]*model.Partnership, error) {
	var res []*model.Partnership
	err := r.db.WithContext(ctx).
		Where("status = ? AND requested_by = ?", model.PartnershipPending, userID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

func (r *partnershipRepository) Create(ctx context.Context, p *model.Partnership) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.PairKey = model.PairKeyOf(p.UserAID, p.UserBID)
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePair
	}
	return err
}

func (r *partnershipRepository) MarkAccepted(ctx context.Context, p *model.Partnership, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Partnership{}).
			Where("id = ? AND status = ?", p.ID, model.PartnershipPending).
			Updates(map[string]any{"status": model.PartnershipAccepted, "responded_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		slots := []model.PartnerSlot{
			{UserID: p.UserAID, PartnershipID: p.ID},
			{UserID: p.UserBID, PartnershipID: p.ID},
		}
		// 唯一主键 user_id：任一参与者已被占用则整个事务回滚
		if err := tx.Create(&slots).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
}

func (r *partnershipRepository) MarkDeclined(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Partnership{}).
		Where("id = ? AND status = ?", id, model.PartnershipPending).
		Updates(map[string]any{"status": model.PartnershipDeclined, "responded_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *partnershipRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Partnership{}).
			Where("id = ? AND status IN ?", id,
				[]model.PartnershipStatus{model.PartnershipPending, model.PartnershipAccepted}).
			Updates(map[string]any{"status": model.PartnershipCancelled, "responded_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		return tx.Where("partnership_id = ?", id).Delete(&model.PartnerSlot{}).Error
	})
}
