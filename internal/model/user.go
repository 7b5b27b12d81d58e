package model

import "time"

// User 用户主体（身份解析与登录）
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(128);not null" json:"-"` // bcrypt hash
	Age       int       `json:"age,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
