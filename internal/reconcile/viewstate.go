package reconcile

import (
	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/service"
)

// ViewState 档案页搭档区块的互斥视图态，按优先级推导
type ViewState int

const (
	// ViewAccepted 双方已是搭档
	ViewAccepted ViewState = iota
	// ViewIncoming 对方发来的待处理请求，展示接受/拒绝
	ViewIncoming
	// ViewOutgoing 我发出的待处理请求，展示撤回
	ViewOutgoing
	// ViewUnavailable 任一方已有无关的 accepted 搭档，置灰并说明原因
	ViewUnavailable
	// ViewAvailable 可发起请求
	ViewAvailable
)

func (v ViewState) String() string {
	switch v {
	case ViewAccepted:
		return "accepted"
	case ViewIncoming:
		return "incoming"
	case ViewOutgoing:
		return "outgoing"
	case ViewUnavailable:
		return "unavailable"
	default:
		return "available"
	}
}

// DeriveViewState 从服务端快照推导唯一视图态。
// 优先级：Accepted > Incoming > Outgoing > Unavailable > Available
func DeriveViewState(viewer string, snap *service.Snapshot) ViewState {
	if b := snap.Between; b != nil {
		switch b.Status {
		case model.PartnershipAccepted:
			return ViewAccepted
		case model.PartnershipPending:
			if b.RequestedBy != viewer {
				return ViewIncoming
			}
			return ViewOutgoing
		}
	}
	if snap.ViewerAccepted != nil || snap.TargetAccepted != nil {
		return ViewUnavailable
	}
	return ViewAvailable
}
