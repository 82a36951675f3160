package models

import (
	"time"
)

type Project struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	StringID    string    `gorm:"type:varchar(100);not null;index" json:"string_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreateDate  time.Time `gorm:"not null" json:"create_date"`
	DutyDate    time.Time `gorm:"not null" json:"duty_date"`
	ManagerID   uint64    `gorm:"not null;index" json:"manager_id"`
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Manager *User `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
}
