package models

import (
	"time"
)

type User struct {
	ID             int64      `gorm:"primaryKey;column:id" json:"id"`
	Email          string     `gorm:"column:email;unique" json:"email"`
	Password       string     `gorm:"column:password" json:"-"`
	FullName       string     `gorm:"column:full_name" json:"full_name"`
	Institution    *string    `gorm:"column:institution" json:"institution,omitempty"`
	Phone          *string    `gorm:"column:phone" json:"phone,omitempty"`
	RegistrationID *string    `gorm:"column:registration_id" json:"registration_id,omitempty"`
	CreatedAt      *time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
