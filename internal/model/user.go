package model

import (
	"strings"
	"time"
)

// User 用户资料。UID 由身份网关分配。
type User struct {
	UID           string    `json:"uid" gorm:"primaryKey;type:varchar(64)"`
	Username      string    `json:"username" gorm:"type:varchar(32);not null"`
	UsernameLower string    `json:"-" gorm:"type:varchar(32);index:idx_user_username_lower"`
	Email         string    `json:"email" gorm:"type:varchar(255)"`
	DisplayName   string    `json:"displayName,omitempty" gorm:"type:varchar(100)"`
	PhotoURL      string    `json:"photoURL,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
}

func (User) TableName() string { return "users" }

// UsernameReservation 用户名唯一索引记录，主键为规范化后的用户名。
type UsernameReservation struct {
	Name       string    `json:"username" gorm:"primaryKey;type:varchar(32)"`
	UID        string    `json:"uid" gorm:"type:varchar(64);not null;index"`
	ReservedAt time.Time `json:"reservedAt"`
}

func (UsernameReservation) TableName() string { return "usernames" }

// NormalizeUsername 去除首尾空白并转小写，用于唯一性比较；展示时保留原始大小写。
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ProfileUpdate 资料修改，nil 字段保持不变
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}
