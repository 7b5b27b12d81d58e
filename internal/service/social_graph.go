package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/pkg/logger"
)

var ErrFollowSelf = errors.New("cannot follow self")

// SocialGraphService 关系链服务：关注边的维护与互关判定。
// 搭档引擎只消费 IsMutualFollow，其余是关系链自身的接口。
type SocialGraphService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	// IsMutualFollow 双向边同时存在才为 true；任一读取失败按未互关处理（fail-closed）
	IsMutualFollow(ctx context.Context, u, v string) bool
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
}

type socialGraphService struct {
	followRepo repository.FollowRepository
	cache      *redis.Client // 可为 nil，直查 DB
	cacheTTL   time.Duration
}

func NewSocialGraphService(followRepo repository.FollowRepository, cache *redis.Client, cacheTTL time.Duration) SocialGraphService {
	return &socialGraphService{followRepo: followRepo, cache: cache, cacheTTL: cacheTTL}
}

func (s *socialGraphService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidateEdge(ctx, fromUserID, toUserID)
	return nil
}

func (s *socialGraphService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidateEdge(ctx, fromUserID, toUserID)
	return nil
}

func (s *socialGraphService) IsMutualFollow(ctx context.Context, u, v string) bool {
	forward, err := s.hasEdge(ctx, u, v)
	if err != nil {
		logger.Warn("edge read failed, treating as not mutual",
			zap.String("follower", u), zap.String("followee", v), zap.Error(err))
		return false
	}
	if !forward {
		return false
	}
	backward, err := s.hasEdge(ctx, v, u)
	if err != nil {
		logger.Warn("edge read failed, treating as not mutual",
			zap.String("follower", v), zap.String("followee", u), zap.Error(err))
		return false
	}
	return backward
}

func (s *socialGraphService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

// hasEdge 读穿缓存：缓存故障降级到 DB，DB 故障才算失败
func (s *socialGraphService) hasEdge(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	key := edgeKey(fromUserID, toUserID)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			return val == "1", nil
		}
	}
	exists, err := s.followRepo.HasEdge(ctx, fromUserID, toUserID)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		val := "0"
		if exists {
			val = "1"
		}
		if err := s.cache.Set(ctx, key, val, s.cacheTTL).Err(); err != nil {
			logger.Debug("edge cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return exists, nil
}

func (s *socialGraphService) invalidateEdge(ctx context.Context, fromUserID, toUserID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, edgeKey(fromUserID, toUserID)).Err(); err != nil {
		logger.Debug("edge cache del failed", zap.Error(err))
	}
}

func edgeKey(fromUserID, toUserID string) string {
	return "edge:" + fromUserID + ":" + toUserID
}
