package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/pkg/logger"
)

var (
	ErrSelfPartner      = errors.New("cannot partner with yourself")
	ErrAlreadyActive    = errors.New("a partnership or pending request already exists between you")
	ErrAlreadyPartnered = errors.New("one of you already has an accepted partner")
	ErrNotMutual        = errors.New("you need to follow each other before requesting a partnership")
	ErrNotFound         = errors.New("partnership not found")
	ErrNotPending       = errors.New("partnership request is no longer pending")
	ErrAlreadyResolved  = errors.New("partnership is already resolved")
	ErrOwnRequest       = errors.New("cannot accept your own partnership request")
	ErrNotParticipant   = errors.New("not a participant of this partnership")
)

// Snapshot 某次档案浏览的搭档状态快照，客户端据此推导视图态
type Snapshot struct {
	ViewerAccepted *model.Partnership `json:"viewer_accepted,omitempty"`
	TargetAccepted *model.Partnership `json:"target_accepted,omitempty"`
	Between        *model.Partnership `json:"between,omitempty"`
}

// PartnershipService 搭档生命周期核心。调用者身份显式入参，
// 服务内不读任何会话态
type PartnershipService interface {
	Request(ctx context.Context, me, them string) (*model.Partnership, error)
	Accept(ctx context.Context, partnershipID, me string) (*model.Partnership, error)
	Decline(ctx context.Context, partnershipID, me string) (*model.Partnership, error)
	Cancel(ctx context.Context, partnershipID, me string) (*model.Partnership, error)

	AcceptedForUser(ctx context.Context, userID string) (*model.Partnership, error)
	ActiveBetween(ctx context.Context, u, v string) (*model.Partnership, error)
	Snapshot(ctx context.Context, viewer, target string) (*Snapshot, error)
	ListIncomingPending(ctx context.Context, userID string) ([]*model.Partnership, error)
	ListOutgoingPending(ctx context.Context, userID string) ([]*model.Partnership, error)
}

type partnershipService struct {
	partnerRepo repository.PartnershipRepository
	userRepo    repository.UserRepository
	graph       SocialGraphService
	emitter     *FeedEmitter
}

func NewPartnershipService(partnerRepo repository.PartnershipRepository, userRepo repository.UserRepository, graph SocialGraphService, emitter *FeedEmitter) PartnershipService {
	return &partnershipService{partnerRepo: partnerRepo, userRepo: userRepo, graph: graph, emitter: emitter}
}

// Request 前置条件按序校验，先失败者先报：
// 1) 两人之间无 pending/accepted 记录
// 2) 双方都没有其他 accepted 搭档
// 3) 互相关注
// 成功后只是静默插入，不产生动态；对端通过实时读取看到请求
func (s *partnershipService) Request(ctx context.Context, me, them string) (*model.Partnership, error) {
	if me == them {
		return nil, ErrSelfPartner
	}
	between, err := s.partnerRepo.GetActiveBetween(ctx, me, them)
	if err != nil {
		return nil, err
	}
	if between != nil {
		return nil, ErrAlreadyActive
	}
	for _, uid := range []string{me, them} {
		accepted, err := s.partnerRepo.GetAcceptedForUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		if accepted != nil {
			return nil, ErrAlreadyPartnered
		}
	}
	if !s.graph.IsMutualFollow(ctx, me, them) {
		return nil, ErrNotMutual
	}

	p := &model.Partnership{
		UserAID:     me,
		UserBID:     them,
		Status:      model.PartnershipPending,
		RequestedBy: me,
		CreatedAt:   time.Now(),
	}
	if err := s.partnerRepo.Create(ctx, p); err != nil {
		// 并发请求输掉唯一索引竞争，等价于已存在
		if errors.Is(err, repository.ErrDuplicatePair) {
			return nil, ErrAlreadyActive
		}
		return nil, err
	}
	return p, nil
}

// Accept 只有非发起方可接受。应用层先复查双方搭档位（给出友好错误），
// 真正的防线是存储层条件更新 + partner_slots 唯一键
func (s *partnershipService) Accept(ctx context.Context, partnershipID, me string) (*model.Partnership, error) {
	p, err := s.load(ctx, partnershipID, me)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PartnershipPending {
		return nil, ErrNotPending
	}
	if p.RequestedBy == me {
		return nil, ErrOwnRequest
	}
	// 请求创建到接受之间任何一方都可能已和第三人成对，必须复查
	for _, uid := range []string{p.UserAID, p.UserBID} {
		accepted, err := s.partnerRepo.GetAcceptedForUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		if accepted != nil {
			return nil, ErrAlreadyPartnered
		}
	}

	now := time.Now()
	if err := s.partnerRepo.MarkAccepted(ctx, p, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			return nil, ErrNotPending
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, ErrAlreadyPartnered
		}
		return nil, err
	}
	p.Status = model.PartnershipAccepted
	p.RespondedAt = &now

	other, _ := p.OtherParticipant(me)
	msg := fmt.Sprintf("@%s accepted the partnership request with @%s.",
		s.username(ctx, me), s.username(ctx, other))
	s.emit(ctx, p, msg)
	return p, nil
}

func (s *partnershipService) Decline(ctx context.Context, partnershipID, me string) (*model.Partnership, error) {
	p, err := s.load(ctx, partnershipID, me)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PartnershipPending {
		return nil, ErrNotPending
	}

	now := time.Now()
	if err := s.partnerRepo.MarkDeclined(ctx, p.ID, now); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrNotPending
		}
		return nil, err
	}
	p.Status = model.PartnershipDeclined
	p.RespondedAt = &now

	other, _ := p.OtherParticipant(me)
	msg := fmt.Sprintf("@%s declined the partnership request from @%s.",
		s.username(ctx, me), s.username(ctx, other))
	s.emit(ctx, p, msg)
	return p, nil
}

// Cancel 撤回 pending 请求或解除 accepted 搭档，两种文案不同
func (s *partnershipService) Cancel(ctx context.Context, partnershipID, me string) (*model.Partnership, error) {
	p, err := s.load(ctx, partnershipID, me)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() && p.Status != model.PartnershipAccepted {
		return nil, ErrAlreadyResolved
	}
	// wasAccepted 只决定文案；slot 释放由存储层按 partnership_id 无条件执行
	wasAccepted := p.Status == model.PartnershipAccepted

	now := time.Now()
	if err := s.partnerRepo.MarkCancelled(ctx, p.ID, now); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrAlreadyResolved
		}
		return nil, err
	}
	p.Status = model.PartnershipCancelled
	p.RespondedAt = &now

	other, _ := p.OtherParticipant(me)
	var msg string
	if wasAccepted {
		msg = fmt.Sprintf("@%s removed @%s as a partner.", s.username(ctx, me), s.username(ctx, other))
	} else {
		msg = fmt.Sprintf("@%s cancelled the partnership request with @%s.", s.username(ctx, me), s.username(ctx, other))
	}
	s.emit(ctx, p, msg)
	return p, nil
}

func (s *partnershipService) AcceptedForUser(ctx context.Context, userID string) (*model.Partnership, error) {
	return s.partnerRepo.GetAcceptedForUser(ctx, userID)
}

func (s *partnershipService) ActiveBetween(ctx context.Context, u, v string) (*model.Partnership, error) {
	return s.partnerRepo.GetActiveBetween(ctx, u, v)
}

func (s *partnershipService) Snapshot(ctx context.Context, viewer, target string) (*Snapshot, error) {
	viewerAccepted, err := s.partnerRepo.GetAcceptedForUser(ctx, viewer)
	if err != nil {
		return nil, err
	}
	targetAccepted, err := s.partnerRepo.GetAcceptedForUser(ctx, target)
	if err != nil {
		return nil, err
	}
	between, err := s.partnerRepo.GetActiveBetween(ctx, viewer, target)
	if err != nil {
		return nil, err
	}
	return &Snapshot{ViewerAccepted: viewerAccepted, TargetAccepted: targetAccepted, Between: between}, nil
}

func (s *partnershipService) ListIncomingPending(ctx context.Context, userID string) ([]*model.Partnership, error) {
	return s.partnerRepo.ListIncomingPending(ctx, userID)
}

func (s *partnershipService) ListOutgoingPending(ctx context.Context, userID string) ([]*model.Partnership, error) {
	return s.partnerRepo.ListOutgoingPending(ctx, userID)
}

// load 取行并校验操作者是参与方
func (s *partnershipService) load(ctx context.Context, partnershipID, me string) (*model.Partnership, error) {
	p, err := s.partnerRepo.GetByID(ctx, partnershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !p.Involves(me) {
		return nil, ErrNotParticipant
	}
	return p, nil
}

// username 文案降级：查不到用户名时用字面 "unknown"，绝不因此中断变更
func (s *partnershipService) username(ctx context.Context, userID string) string {
	name, err := s.userRepo.GetUsername(ctx, userID)
	if err != nil {
		return "unknown"
	}
	return name
}

// emit 状态已提交后的扇出，失败只记日志不回滚（已知的不一致窗口）
func (s *partnershipService) emit(ctx context.Context, p *model.Partnership, message string) {
	if err := s.emitter.EmitToBoth(ctx, p.UserAID, p.UserBID, p.ID, message); err != nil {
		logger.Error("feed fan-out failed after committed transition",
			zap.String("partnership_id", p.ID),
			zap.String("status", string(p.Status)),
			zap.Error(err))
	}
}
