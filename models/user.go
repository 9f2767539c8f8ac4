package models

import "time"

type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	IsProfessional bool      `json:"is_professional" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
}
