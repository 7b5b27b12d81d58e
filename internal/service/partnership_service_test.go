package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
)

type fixture struct {
	db    *gorm.DB
	svc   PartnershipService
	graph SocialGraphService
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Partnership{}, &model.PartnerSlot{}, &model.FeedEvent{}))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	partnerRepo := repository.NewPartnershipRepository(db)
	feedRepo := repository.NewFeedEventRepository(db)
	graph := NewSocialGraphService(followRepo, nil, 0)
	svc := NewPartnershipService(partnerRepo, userRepo, graph, NewFeedEmitter(feedRepo))
	return &fixture{db: db, svc: svc, graph: graph}
}

func (f *fixture) mkUser(t *testing.T, name string) string {
	t.Helper()
	u := &model.User{ID: uuid.New().String(), Username: name, Email: name + "@example.com", Password: "p"}
	require.NoError(t, f.db.Create(u).Error)
	return u.ID
}

func (f *fixture) mutualFollow(t *testing.T, u, v string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.graph.Follow(ctx, u, v))
	require.NoError(t, f.graph.Follow(ctx, v, u))
}

func (f *fixture) feedFor(t *testing.T, userID string) []model.FeedEvent {
	t.Helper()
	var evs []model.FeedEvent
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("created_at").Find(&evs).Error)
	return evs
}

// Scenario A：互关 → 请求 → 接受 → accepted + 双方各一条动态
func TestRequestThenAccept(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipPending, p.Status)
	require.Equal(t, u, p.RequestedBy)
	require.Nil(t, p.RespondedAt)

	// 请求是静默插入，不产生动态
	require.Empty(t, f.feedFor(t, u))
	require.Empty(t, f.feedFor(t, v))

	accepted, err := f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	for _, uid := range []string{u, v} {
		got, err := f.svc.AcceptedForUser(ctx, uid)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, p.ID, got.ID)
	}

	// 扇出对称：两条记录，文案一致，指向同一行
	evU, evV := f.feedFor(t, u), f.feedFor(t, v)
	require.Len(t, evU, 1)
	require.Len(t, evV, 1)
	require.Equal(t, evU[0].Message, evV[0].Message)
	require.Equal(t, "@viktor accepted the partnership request with @ursula.", evU[0].Message)
	require.Equal(t, p.ID, evU[0].RefID)
	require.Equal(t, model.FeedEventTypePartnership, evU[0].Type)
}

// Scenario C：未互关即拒绝，且不落任何行
func TestRequestRequiresMutualFollow(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")

	_, err := f.svc.Request(ctx, u, v)
	require.ErrorIs(t, err, ErrNotMutual)

	// 单向关注也不行
	require.NoError(t, f.graph.Follow(ctx, u, v))
	_, err = f.svc.Request(ctx, u, v)
	require.ErrorIs(t, err, ErrNotMutual)

	var cnt int64
	require.NoError(t, f.db.Model(&model.Partnership{}).Count(&cnt).Error)
	require.Zero(t, cnt)
}

func TestRequestSelf(t *testing.T) {
	f := setupFixture(t)
	u := f.mkUser(t, "ursula")
	_, err := f.svc.Request(context.Background(), u, u)
	require.ErrorIs(t, err, ErrSelfPartner)
}

// Invariant 2：已有 pending/accepted 记录时，双向重复请求都报已存在
func TestRequestDuplicatePair(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	_, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, u, v)
	require.ErrorIs(t, err, ErrAlreadyActive)
	_, err = f.svc.Request(ctx, v, u)
	require.ErrorIs(t, err, ErrAlreadyActive)
}

func TestRequestBlockedByExistingPartner(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	w := f.mkUser(t, "wanda")
	f.mutualFollow(t, u, w)
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, w)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, p.ID, w)
	require.NoError(t, err)

	// 任一方已有搭档都挡掉
	_, err = f.svc.Request(ctx, u, v)
	require.ErrorIs(t, err, ErrAlreadyPartnered)
	_, err = f.svc.Request(ctx, v, u)
	require.ErrorIs(t, err, ErrAlreadyPartnered)
}

func TestAcceptOwnRequest(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, p.ID, u)
	require.ErrorIs(t, err, ErrOwnRequest)
}

func TestAcceptByOutsider(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	x := f.mkUser(t, "xavier")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, p.ID, x)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestAcceptMissing(t *testing.T) {
	f := setupFixture(t)
	u := f.mkUser(t, "ursula")
	_, err := f.svc.Accept(context.Background(), uuid.New().String(), u)
	require.ErrorIs(t, err, ErrNotFound)
}

// Scenario B：请求挂起期间发起方另结搭档，接受时复查必须失败
func TestAcceptRevalidatesParticipants(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	w := f.mkUser(t, "wanda")
	f.mutualFollow(t, u, v)
	f.mutualFollow(t, u, w)

	toV, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)
	toW, err := f.svc.Request(ctx, u, w)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, toW.ID, w)
	require.NoError(t, err)

	// 读到的行当时是 pending，但 u 已和 w 成对
	_, err = f.svc.Accept(ctx, toV.ID, v)
	require.ErrorIs(t, err, ErrAlreadyPartnered)

	got, err := f.svc.AcceptedForUser(ctx, u)
	require.NoError(t, err)
	require.Equal(t, toW.ID, got.ID)
}

func TestDeclineAndTerminalIdempotence(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, p.ID, v)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipDeclined, declined.Status)
	require.NotNil(t, declined.RespondedAt)
	require.Equal(t, "@viktor declined the partnership request from @ursula.", f.feedFor(t, u)[0].Message)

	evBefore := len(f.feedFor(t, u))

	// 终态行上的任何再操作都失败且无副作用
	_, err = f.svc.Decline(ctx, p.ID, v)
	require.ErrorIs(t, err, ErrNotPending)
	_, err = f.svc.Accept(ctx, p.ID, v)
	require.ErrorIs(t, err, ErrNotPending)
	_, err = f.svc.Cancel(ctx, p.ID, u)
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.Len(t, f.feedFor(t, u), evBefore)
}

func TestCancelPendingRequest(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, p.ID, u)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipCancelled, cancelled.Status)
	require.Equal(t, "@ursula cancelled the partnership request with @viktor.", f.feedFor(t, v)[0].Message)
}

func TestCancelAcceptedDissolvesPartnership(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, p.ID, v)
	require.NoError(t, err)

	evs := f.feedFor(t, u)
	require.Equal(t, "@viktor removed @ursula as a partner.", evs[len(evs)-1].Message)

	// 搭档位释放，双方可重新成对
	got, err := f.svc.AcceptedForUser(ctx, u)
	require.NoError(t, err)
	require.Nil(t, got)

	again, err := f.svc.Request(ctx, v, u)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, again.ID, u)
	require.NoError(t, err)
}

// stalePendingRepo 把 GetByID 的结果固定成 pending，模拟撤回方读行之后、
// 写入之前对端 accept 已提交的交错
type stalePendingRepo struct {
	repository.PartnershipRepository
}

func (r stalePendingRepo) GetByID(ctx context.Context, id string) (*model.Partnership, error) {
	p, err := r.PartnershipRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = model.PartnershipPending
	return p, nil
}

// 撤回基于旧读也必须释放搭档位：否则双方永远无法再接受任何搭档
func TestCancelWithStaleReadReleasesSlots(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	w := f.mkUser(t, "wanda")
	f.mutualFollow(t, u, v)
	f.mutualFollow(t, v, w)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)

	// u 的撤回读到的仍是 pending
	partnerRepo := stalePendingRepo{repository.NewPartnershipRepository(f.db)}
	stale := NewPartnershipService(partnerRepo, repository.NewUserRepository(f.db), f.graph,
		NewFeedEmitter(repository.NewFeedEventRepository(f.db)))
	_, err = stale.Cancel(ctx, p.ID, u)
	require.NoError(t, err)

	var cnt int64
	require.NoError(t, f.db.Model(&model.PartnerSlot{}).Count(&cnt).Error)
	require.Zero(t, cnt, "cancel left orphaned partner slots")

	for _, uid := range []string{u, v} {
		got, err := f.svc.AcceptedForUser(ctx, uid)
		require.NoError(t, err)
		require.Nil(t, got)
	}

	// v 之后还能和第三人成对
	next, err := f.svc.Request(ctx, v, w)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, next.ID, w)
	require.NoError(t, err)
}

// 扇出失败发生在状态已提交之后：只记日志，变更保留，调用方不受影响
func TestAcceptSucceedsWhenFanOutFails(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	// 让动态表不可写
	require.NoError(t, f.db.Migrator().DropTable(&model.FeedEvent{}))

	accepted, err := f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipAccepted, accepted.Status)

	got, err := f.svc.AcceptedForUser(ctx, v)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, p.ID, got.ID)
}

// 互关只是请求时的前置条件：事后取关不解除已成立的搭档
func TestUnfollowDoesNotDissolveAccepted(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)

	require.NoError(t, f.graph.Unfollow(ctx, u, v))

	got, err := f.svc.AcceptedForUser(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, model.PartnershipAccepted, got.Status)
}

// 文案降级：用户名解析失败用字面 unknown，变更本身不受影响
func TestUsernameFallback(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	ghost := uuid.New().String() // 无用户行
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, ghost, v)

	p, err := f.svc.Request(ctx, ghost, v)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, p.ID, v)
	require.NoError(t, err)

	evs := f.feedFor(t, v)
	require.Len(t, evs, 1)
	require.Equal(t, "@viktor accepted the partnership request with @unknown.", evs[0].Message)
}

// Invariant 1：任意请求/接受序列后，没有用户出现在两条 accepted 行里
func TestNoUserHoldsTwoAcceptedRows(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	const n = 6
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.mkUser(t, fmt.Sprintf("user%d", i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			f.mutualFollow(t, ids[i], ids[j])
		}
	}

	// 每个人向所有其他人发请求，随后所有人尝试接受全部入向请求
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				_, _ = f.svc.Request(ctx, ids[i], ids[j])
			}
		}
	}
	for _, me := range ids {
		incoming, err := f.svc.ListIncomingPending(ctx, me)
		require.NoError(t, err)
		for _, p := range incoming {
			_, _ = f.svc.Accept(ctx, p.ID, me)
		}
	}

	for _, uid := range ids {
		var cnt int64
		require.NoError(t, f.db.Model(&model.Partnership{}).
			Where("status = ? AND (user_a_id = ? OR user_b_id = ?)", model.PartnershipAccepted, uid, uid).
			Count(&cnt).Error)
		require.LessOrEqual(t, cnt, int64(1), "user %s holds %d accepted rows", uid, cnt)
	}
}

func TestSnapshot(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	u := f.mkUser(t, "ursula")
	v := f.mkUser(t, "viktor")
	f.mutualFollow(t, u, v)

	snap, err := f.svc.Snapshot(ctx, u, v)
	require.NoError(t, err)
	require.Nil(t, snap.Between)
	require.Nil(t, snap.ViewerAccepted)
	require.Nil(t, snap.TargetAccepted)

	p, err := f.svc.Request(ctx, u, v)
	require.NoError(t, err)

	snap, err = f.svc.Snapshot(ctx, v, u)
	require.NoError(t, err)
	require.NotNil(t, snap.Between)
	require.Equal(t, p.ID, snap.Between.ID)
}
