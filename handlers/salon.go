package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/models"

	"github.com/gin-gonic/gin"
)

// SlotPrice is the flat per-slot price shown on the availability grid.
const SlotPrice = 45.0

type CreateSalonRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address" binding:"required"`
	City        string `json:"city" binding:"required"`
	Phone       string `json:"phone"`
	Email       string `json:"email" binding:"omitempty,email"`
	PriceRange  string `json:"price_range" binding:"required,oneof=€ €€ €€€"`
	ImageURL    string `json:"image_url"`
	OpenTime    string `json:"open_time" binding:"required"`
	CloseTime   string `json:"close_time" binding:"required"`
}

// AvailabilitySlot is one entry of the hourly availability grid.
type AvailabilitySlot struct {
	Time      string  `json:"time"`
	Available bool    `json:"available"`
	Price     float64 `json:"price"`
}

// ListSalons returns salons with conjunctive filters, sorting and pagination
func ListSalons(c *gin.Context) {
	query := config.DB.Model(&models.Salon{})

	if city := c.Query("city"); city != "" {
		query = query.Where("LOWER(city) LIKE LOWER(?)", "%"+city+"%")
	}
	if priceRange := c.Query("price_range"); priceRange != "" {
		query = query.Where("price_range = ?", priceRange)
	}
	if minRating := c.Query("min_rating"); minRating != "" {
		if v, err := strconv.ParseFloat(minRating, 64); err == nil {
			query = query.Where("rating >= ?", v)
		}
	}
	// service_type, available_date and available_time are accepted but do not
	// narrow the result; slot-level availability lives on the availability
	// endpoint.

	switch c.DefaultQuery("sort_by", "rating") {
	case "price":
		// € < €€ < €€€ sorts correctly as a plain string ordering.
		query = query.Order("price_range asc")
	case "reviews":
		query = query.Order("total_reviews desc")
	default:
		query = query.Order("rating desc")
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var salons []models.Salon
	query.Offset(skip).Limit(limit).Find(&salons)

	c.JSON(http.StatusOK, gin.H{
		"count":  len(salons),
		"salons": salons,
	})
}

// SearchSalons does a substring search across name, description, city, address
func SearchSalons(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search term 'q' is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	pattern := "%" + q + "%"
	var salons []models.Salon
	config.DB.
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(city) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern).
		Order("rating desc").
		Limit(limit).
		Find(&salons)

	c.JSON(http.StatusOK, gin.H{
		"count":  len(salons),
		"salons": salons,
	})
}

// PopularSalons returns the best-rated, well-reviewed salons
func PopularSalons(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))

	var salons []models.Salon
	config.DB.
		Where("rating >= ? AND total_reviews >= ?", 4.5, 20).
		Order("rating desc").
		Order("total_reviews desc").
		Limit(limit).
		Find(&salons)

	c.JSON(http.StatusOK, gin.H{
		"count":  len(salons),
		"salons": salons,
	})
}

// NearbySalons echoes the requested area; no geo math is done yet, the
// best-rated salons are returned regardless of distance.
func NearbySalons(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	radius, _ := strconv.Atoi(c.DefaultQuery("radius", "10"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var salons []models.Salon
	config.DB.Order("rating desc").Limit(limit).Find(&salons)

	c.JSON(http.StatusOK, gin.H{
		"center":  gin.H{"lat": lat, "lng": lng},
		"radius":  radius,
		"salons":  salons,
		"message": "Géolocalisation en cours d'implémentation",
	})
}

// GetSalon returns a single salon
func GetSalon(c *gin.Context) {
	var salon models.Salon
	if err := config.DB.First(&salon, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Salon not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"salon": salon})
}

// CreateSalon registers a new bookable salon
func CreateSalon(c *gin.Context) {
	var req CreateSalonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	openAt, errOpen := time.Parse("15:04", req.OpenTime)
	closeAt, errClose := time.Parse("15:04", req.CloseTime)
	if errOpen != nil || errClose != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_time and close_time must be HH:MM"})
		return
	}
	if !openAt.Before(closeAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_time must be before close_time"})
		return
	}

	salon := models.Salon{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		Phone:       req.Phone,
		Email:       req.Email,
		PriceRange:  req.PriceRange,
		ImageURL:    req.ImageURL,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
	}

	// Professionals creating a salon while logged in own it.
	if val, ok := c.Get("userID"); ok {
		id := val.(uint)
		salon.OwnerID = &id
	}

	if err := config.DB.Create(&salon).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create salon"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Salon created successfully",
		"salon":   salon,
	})
}

// GetSalonAvailability returns the hourly 09:00-18:00 grid for a date, with
// slots overlapped by a live reservation marked unavailable.
func GetSalonAvailability(c *gin.Context) {
	var salon models.Salon
	if err := config.DB.First(&salon, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Salon not found"})
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required (YYYY-MM-DD)"})
		return
	}

	// Every non-cancelled booking touching the day, including ones that
	// started the evening before and run past midnight.
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	var booked []models.Reservation
	config.DB.
		Where("salon_id = ? AND status <> ?", salon.ID, models.StatusCancelled).
		Where("appointment_date < ? AND appointment_date > ?", dayEnd, dayStart.Add(-24*time.Hour)).
		Find(&booked)

	slots := make([]AvailabilitySlot, 0, 10)
	for hour := 9; hour <= 18; hour++ {
		slotStart := day.Add(time.Duration(hour) * time.Hour)
		slotEnd := slotStart.Add(time.Hour)

		available := true
		for i := range booked {
			if booked[i].Overlaps(slotStart, slotEnd) {
				available = false
				break
			}
		}

		slots = append(slots, AvailabilitySlot{
			Time:      slotStart.Format("15:04"),
			Available: available,
			Price:     SlotPrice,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"salon_id": salon.ID,
		"date":     day.Format("2006-01-02"),
		"slots":    slots,
	})
}
