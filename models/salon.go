package models

import "time"

// PriceRange labels, ordered cheapest to priciest.
const (
	PriceBudget  = "€"
	PriceMid     = "€€"
	PricePremium = "€€€"
)

type Salon struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"index;not null"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	City         string    `json:"city" gorm:"index"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Rating       float64   `json:"rating" gorm:"default:0"`
	TotalReviews int       `json:"total_reviews" gorm:"default:0"`
	PriceRange   string    `json:"price_range"` // €, €€, €€€
	ImageURL     string    `json:"image_url"`
	OpenTime     string    `json:"open_time"`  // "HH:MM"
	CloseTime    string    `json:"close_time"` // "HH:MM"
	OwnerID      *uint     `json:"owner_id,omitempty"`
	Owner        *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	CreatedAt    time.Time `json:"created_at"`
}
