package model

import (
	"time"
)

// 管理员角色
const (
	RoleAdmin = "admin"
)

// User 后台管理员账户，许可证本身不关联用户
type User struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Username  string     `json:"username" gorm:"unique;not null"`
	Password  string     `json:"-" gorm:"not null"`
	Role      string     `json:"role" gorm:"default:'admin'"`
	Status    string     `json:"status" gorm:"default:'active'"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}
