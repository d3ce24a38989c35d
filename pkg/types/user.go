package types

import (
	"errors"
	"time"
)

type UserType string

const (
	UserTypeAdmin    UserType = "admin"
	UserTypeSubAdmin UserType = "sub_admin"
	UserTypeUser     UserType = "user"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID          string     `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	Password    string     `db:"password" json:"-"`
	Name        string     `db:"name" json:"name"`
	PhotoID     *string    `db:"photo_id" json:"photo_id"`
	Phone       string     `db:"phone" json:"phone"`
	Address     string     `db:"address" json:"address"`
	Type        UserType   `db:"type" json:"type"`
	CommunityID *string    `db:"community_id" json:"community_id"`
	ResetToken  *string    `db:"reset_token" json:"-"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy   *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// Populated, never stored.
	Photo *File `db:"-" json:"photo,omitempty"`
}

// IsStaff reports whether the user may manage shared resources.
func (u *User) IsStaff() bool {
	return u.Type == UserTypeAdmin || u.Type == UserTypeSubAdmin
}
