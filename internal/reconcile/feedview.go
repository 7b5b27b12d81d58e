package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/d60-Lab/pairlink/internal/model"
)

// BannerState 单条请求横幅的乐观更新状态机
type BannerState int

const (
	BannerIdle BannerState = iota
	BannerInFlight
	BannerResolved
	BannerRolledBack
)

// Banner 动态流里的一条待处理搭档请求
type Banner struct {
	PartnershipID string
	RequesterID   string
	State         BannerState
	Hidden        bool
}

func (b *Banner) interactive() bool {
	return b.State == BannerIdle || b.State == BannerRolledBack
}

// PartnershipAPI 横幅操作依赖的网络操作子集，由 PartnershipService 满足
type PartnershipAPI interface {
	Accept(ctx context.Context, partnershipID, me string) (*model.Partnership, error)
	Decline(ctx context.Context, partnershipID, me string) (*model.Partnership, error)
}

// Loader 全量重载：拉取当前用户全部待处理的入向请求
type Loader func(ctx context.Context, userID string) ([]*model.Partnership, error)

// FeedView 多横幅视图的协调层。接受任意一条请求会在网络往返开始前
// 同步压制其余横幅（接受者只能有一个搭档，其余请求随之过期）；
// 压制锁挂在在途的那次接受上，失败即释放，成功则保持到重载
type FeedView struct {
	mu sync.Mutex

	viewer string
	api    PartnershipAPI
	load   Loader
	// 纯视觉的过渡延迟，让 in-progress 态可感知
	resolveDelay time.Duration

	banners []*Banner
	// inFlightAccept 持锁的在途接受操作；空串表示无
	inFlightAccept string
	// accepted 接受成功后保持压制，直到下一次 Load 重新推导
	accepted bool
	// generation 防止过期的重载覆盖更新的数据
	generation int
}

func NewFeedView(viewer string, api PartnershipAPI, load Loader, resolveDelay time.Duration) *FeedView {
	return &FeedView{viewer: viewer, api: api, load: load, resolveDelay: resolveDelay}
}

// Load 以服务端真值重建全部横幅；并发 Load 只保留最新一次的结果
func (v *FeedView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.mu.Unlock()

	pending, err := v.load(ctx, v.viewer)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		// 期间有更新的 Load 启动，丢弃本次结果
		return nil
	}
	banners := make([]*Banner, 0, len(pending))
	for _, p := range pending {
		banners = append(banners, &Banner{PartnershipID: p.ID, RequesterID: p.RequestedBy})
	}
	v.banners = banners
	v.inFlightAccept = ""
	v.accepted = false
	return nil
}

// VisibleBanners 返回当前应渲染的横幅（未隐藏且未被压制）
func (v *FeedView) VisibleBanners() []Banner {
	v.mu.Lock()
	defer v.mu.Unlock()
	res := make([]Banner, 0, len(v.banners))
	for _, b := range v.banners {
		if b.Hidden || v.suppressedLocked(b.PartnershipID) {
			continue
		}
		res = append(res, *b)
	}
	return res
}

// Suppressed 判断横幅是否被跨横幅锁压制
func (v *FeedView) Suppressed(partnershipID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.suppressedLocked(partnershipID)
}

func (v *FeedView) suppressedLocked(partnershipID string) bool {
	if v.accepted {
		return true
	}
	return v.inFlightAccept != "" && v.inFlightAccept != partnershipID
}

// BannerState 当前状态（不存在返回 false）
func (v *FeedView) BannerState(partnershipID string) (BannerState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b := v.find(partnershipID); b != nil {
		return b.State, true
	}
	return 0, false
}

// Accept 乐观接受：同步设置在途锁与 in-progress 态，过渡延迟后隐藏，
// 再发真实请求。成功则全量重载，失败则回滚该横幅并释放锁
func (v *FeedView) Accept(ctx context.Context, partnershipID string) error {
	v.mu.Lock()
	b := v.find(partnershipID)
	if b == nil || !b.interactive() || v.suppressedLocked(partnershipID) || v.inFlightAccept != "" {
		v.mu.Unlock()
		return ErrBannerUnavailable
	}
	b.State = BannerInFlight
	v.inFlightAccept = partnershipID
	v.mu.Unlock()

	v.pause()

	v.mu.Lock()
	b.State = BannerResolved
	b.Hidden = true
	v.mu.Unlock()

	if _, err := v.api.Accept(ctx, partnershipID, v.viewer); err != nil {
		v.mu.Lock()
		b.State = BannerRolledBack
		b.Hidden = false
		v.inFlightAccept = ""
		v.mu.Unlock()
		return err
	}

	v.mu.Lock()
	v.accepted = true
	v.inFlightAccept = ""
	v.mu.Unlock()

	return v.Load(ctx)
}

// Decline 同样的乐观路径，但不触发跨横幅锁
func (v *FeedView) Decline(ctx context.Context, partnershipID string) error {
	v.mu.Lock()
	b := v.find(partnershipID)
	if b == nil || !b.interactive() || v.suppressedLocked(partnershipID) {
		v.mu.Unlock()
		return ErrBannerUnavailable
	}
	b.State = BannerInFlight
	v.mu.Unlock()

	v.pause()

	v.mu.Lock()
	b.State = BannerResolved
	b.Hidden = true
	v.mu.Unlock()

	if _, err := v.api.Decline(ctx, partnershipID, v.viewer); err != nil {
		v.mu.Lock()
		b.State = BannerRolledBack
		b.Hidden = false
		v.mu.Unlock()
		return err
	}

	return v.Load(ctx)
}

func (v *FeedView) find(partnershipID string) *Banner {
	for _, b := range v.banners {
		if b.PartnershipID == partnershipID {
			return b
		}
	}
	return nil
}

func (v *FeedView) pause() {
	if v.resolveDelay > 0 {
		time.Sleep(v.resolveDelay)
	}
}
