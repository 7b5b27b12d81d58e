package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
)

func setupGraph(t *testing.T) (SocialGraphService, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Follow{}))

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	graph := NewSocialGraphService(repository.NewFollowRepository(db), cache, 30*time.Second)
	return graph, db, mr
}

func TestIsMutualFollow(t *testing.T) {
	graph, _, _ := setupGraph(t)
	ctx := context.Background()

	require.False(t, graph.IsMutualFollow(ctx, "u1", "u2"))

	require.NoError(t, graph.Follow(ctx, "u1", "u2"))
	require.False(t, graph.IsMutualFollow(ctx, "u1", "u2"), "单向关注不算互关")

	require.NoError(t, graph.Follow(ctx, "u2", "u1"))
	require.True(t, graph.IsMutualFollow(ctx, "u1", "u2"))
	require.True(t, graph.IsMutualFollow(ctx, "u2", "u1"))
}

func TestFollowSelf(t *testing.T) {
	graph, _, _ := setupGraph(t)
	require.ErrorIs(t, graph.Follow(context.Background(), "u1", "u1"), ErrFollowSelf)
}

func TestUnfollowBreaksMutual(t *testing.T) {
	graph, _, _ := setupGraph(t)
	ctx := context.Background()

	require.NoError(t, graph.Follow(ctx, "u1", "u2"))
	require.NoError(t, graph.Follow(ctx, "u2", "u1"))
	require.True(t, graph.IsMutualFollow(ctx, "u1", "u2"))

	require.NoError(t, graph.Unfollow(ctx, "u2", "u1"))
	require.False(t, graph.IsMutualFollow(ctx, "u1", "u2"))
}

func TestEdgeCacheReadThrough(t *testing.T) {
	graph, db, mr := setupGraph(t)
	ctx := context.Background()

	require.NoError(t, graph.Follow(ctx, "u1", "u2"))
	require.NoError(t, graph.Follow(ctx, "u2", "u1"))
	require.True(t, graph.IsMutualFollow(ctx, "u1", "u2"))

	// 绕过服务直接删边：缓存未失效前仍按旧值判定
	require.NoError(t, db.Where("follower_id = ?", "u1").Delete(&model.Follow{}).Error)
	require.True(t, graph.IsMutualFollow(ctx, "u1", "u2"))

	mr.FlushAll()
	require.False(t, graph.IsMutualFollow(ctx, "u1", "u2"))
}

// 缓存宕机只降级到 DB，不影响判定
func TestEdgeCacheDownFallsThrough(t *testing.T) {
	graph, _, mr := setupGraph(t)
	ctx := context.Background()

	require.NoError(t, graph.Follow(ctx, "u1", "u2"))
	require.NoError(t, graph.Follow(ctx, "u2", "u1"))

	mr.Close()
	require.True(t, graph.IsMutualFollow(ctx, "u1", "u2"))
}
