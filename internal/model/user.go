// Package model 定义数据库实体模型
package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 用户模型，对应 users 表
// 用户由外部身份系统维护，聊天核心只读取
type User struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Username  string    `gorm:"column:username;uniqueIndex;type:varchar(64);not null"`
	Email     string    `gorm:"column:email;uniqueIndex;type:varchar(255);not null"`
	Password  string    `gorm:"column:password;type:varchar(100);not null"`
	AvatarURL *string   `gorm:"column:avatar_url;type:varchar(512)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	// RawPassword 明文密码，不入库，在 BeforeSave 中加密
	RawPassword string `gorm:"-" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 未指定 ID 时生成 UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave 将 RawPassword 加密后存入 Password
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.RawPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.RawPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.Password = string(hash)
		u.RawPassword = ""
	}
	return nil
}

// CheckPassword 校验明文密码
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}
