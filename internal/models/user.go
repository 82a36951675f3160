package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManage reports whether the role may create and modify projects, tasks and users.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

type User struct {
	ID            uint64                      `gorm:"primarykey" json:"id"`
	FirstName     string                      `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string                      `gorm:"type:varchar(100);not null" json:"last_name"`
	Email         string                      `gorm:"type:varchar(255);not null" json:"email"`
	PhoneNumber   string                      `gorm:"type:varchar(50);not null" json:"phone_number"`
	Role          Role                        `gorm:"type:varchar(20);not null;index" json:"role"`
	Login         string                      `gorm:"type:varchar(100);not null;index" json:"login"`
	PasswordHash  string                      `gorm:"type:varchar(255);not null" json:"-"`
	QRCode        string                      `gorm:"type:text" json:"-"`
	FacePhotoKey  string                      `gorm:"type:varchar(255)" json:"-"`
	FaceSubjectID string                      `gorm:"type:varchar(100);index" json:"-"`
	Work          datatypes.JSONSlice[uint64] `json:"work"`
	Active        bool                        `gorm:"not null;default:true;index" json:"active"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// FullName returns "first last".
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
