package model

import "time"

// Account 本地身份网关的账号记录，与 User 资料分开存储。
type Account struct {
	UID          string `gorm:"primaryKey;type:varchar(64)"`
	Email        string `gorm:"type:varchar(255);index"`
	PasswordHash string `gorm:"type:varchar(100)"`
	DisplayName  string `gorm:"type:varchar(100)"`
	// Provider/Subject 联合登录来源，本地账号为空
	Provider  string `gorm:"type:varchar(100);index:idx_account_federated,priority:1"`
	Subject   string `gorm:"type:varchar(255);index:idx_account_federated,priority:2"`
	CreatedAt time.Time
}

func (Account) TableName() string { return "accounts" }
