package domain

import (
	"time"

	"support_chat_service/pkg/encrypt"

	"gorm.io/gorm"
)

// UserStatus definition online state kept in the directory
type UserStatus string

const (
	//UserStatusOnline user holds a live session
	UserStatusOnline UserStatus = "online"
	//UserStatusOffline no live session
	UserStatusOffline UserStatus = "offline"
)

// User one directory account, end user or staff
type User struct {
	ID           int64
	UserID       string
	Email        string
	Password     string
	Role         string
	TenantID     string
	Status       UserStatus
	DeviceTokens []string
}

// IsPasswordMatch compare the stored hash against a login attempt
func (u *User) IsPasswordMatch(password string) error {
	return encrypt.CheckPassword(u.Password, password)
}

// UserQuery optional lookup criteria, nil fields are ignored
type UserQuery struct {
	ID     *int64
	UserID *string
	Email  *string
}

// UserSession login session cached in redis, keyed by user id
type UserSession struct {
	Token        string    `json:"token"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// Tenant one organization whose members share a staff view
type Tenant struct {
	ID        uint   `gorm:"primarykey"`
	TenantID  string `gorm:"uniqueIndex;size:64"`
	Name      string `gorm:"size:255"`
	Plan      string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
