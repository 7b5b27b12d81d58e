package model

import (
	"strings"
	"time"
)

type PartnershipStatus string

const (
	PartnershipPending   PartnershipStatus = "pending"
	PartnershipAccepted  PartnershipStatus = "accepted"
	PartnershipDeclined  PartnershipStatus = "declined"
	PartnershipCancelled PartnershipStatus = "cancelled"
)

// Partnership 搭档关系（无序对，双方唯一）
// pair_key = 字典序排列的 "lo:hi"，配合部分唯一索引保证同一对用户
// 同时最多一条 pending/accepted 记录
type Partnership struct {
	ID          string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserAID     string            `gorm:"type:varchar(36);index:idx_partnership_a;not null" json:"user_a_id"`
	UserBID     string            `gorm:"type:varchar(36);index:idx_partnership_b;not null" json:"user_b_id"`
	PairKey     string            `gorm:"type:varchar(73);index:ux_partnership_active_pair,unique,where:status = 'pending' OR status = 'accepted';not null" json:"-"`
	Status      PartnershipStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	RequestedBy string            `gorm:"type:varchar(36);not null" json:"requested_by"`
	CreatedAt   time.Time         `json:"created_at"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
}

func (Partnership) TableName() string { return "partnerships" }

// PairKeyOf 对无序用户对做归一化
func PairKeyOf(u, v string) string {
	if strings.Compare(u, v) > 0 {
		u, v = v, u
	}
	return u + ":" + v
}

// Involves 判断用户是否为参与方
func (p *Partnership) Involves(userID string) bool {
	return p.UserAID == userID || p.UserBID == userID
}

// OtherParticipant 返回对端参与者；userID 非参与方时 ok 为 false
func (p *Partnership) OtherParticipant(userID string) (string, bool) {
	switch userID {
	case p.UserAID:
		return p.UserBID, true
	case p.UserBID:
		return p.UserAID, true
	}
	return "", false
}

// IsTerminal pending 之外的状态均为终态
func (p *Partnership) IsTerminal() bool {
	return p.Status != PartnershipPending
}

// PartnerSlot 已接受搭档的占位行，user_id 唯一索引在存储层兜底
// 「每人同时最多一个 accepted 搭档」，与状态变更同事务写入/删除
type PartnerSlot struct {
	UserID        string `gorm:"primaryKey;type:varchar(36)"`
	PartnershipID string `gorm:"type:varchar(36);index;not null"`
	CreatedAt     time.Time
}

func (PartnerSlot) TableName() string { return "partner_slots" }
