package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/middleware"
	"github.com/WILTYS/bookinails/models"
	"github.com/WILTYS/bookinails/notify"
	"github.com/WILTYS/bookinails/statemachine"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateReservationRequest struct {
	SalonID         uint      `json:"salon_id" binding:"required"`
	ServiceType     string    `json:"service_type" binding:"required"`
	AppointmentDate time.Time `json:"appointment_date" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price" binding:"required"`
	ClientNotes     string    `json:"client_notes"`
}

// ErrSlotTaken means another live reservation overlaps the requested time.
var ErrSlotTaken = errors.New("slot already booked")

// insertReservation writes a reservation inside a transaction that rejects
// any overlap with a non-cancelled booking at the same salon. The partial
// unique index on (salon_id, appointment_date) backstops concurrent inserts
// that race past the read.
func insertReservation(db *gorm.DB, res *models.Reservation) error {
	if res.DurationMinutes <= 0 {
		res.DurationMinutes = 60
	}
	return db.Transaction(func(tx *gorm.DB) error {
		start := res.AppointmentDate
		end := res.End()

		var clashing []models.Reservation
		if err := tx.
			Where("salon_id = ? AND status <> ?", res.SalonID, models.StatusCancelled).
			Where("appointment_date < ? AND appointment_date > ?", end, start.Add(-24*time.Hour)).
			Find(&clashing).Error; err != nil {
			return err
		}
		for i := range clashing {
			if clashing[i].Overlaps(start, end) {
				return ErrSlotTaken
			}
		}

		if err := tx.Create(res).Error; err != nil {
			// A concurrent insert that raced past the read trips the
			// unique index instead.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
}

// CreateReservation books a slot for the authenticated client
func CreateReservation(c *gin.Context) {
	clientID := middleware.GetUserID(c)

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var salon models.Salon
	if err := config.DB.First(&salon, req.SalonID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Salon not found"})
		return
	}

	reservation := models.Reservation{
		SalonID:         req.SalonID,
		ClientID:        clientID,
		ServiceType:     req.ServiceType,
		AppointmentDate: req.AppointmentDate,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Status:          models.StatusConfirmed,
		PaymentStatus:   models.PaymentPending,
		ClientNotes:     req.ClientNotes,
	}

	if err := insertReservation(config.DB, &reservation); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "This slot is already booked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reservation"})
		return
	}

	// Fire-and-forget: confirmation now, reminder the day before.
	notify.EnqueueBookingConfirmation(reservation.ID)
	notify.EnqueueBookingReminder(reservation.ID, reservation.AppointmentDate)

	config.DB.Preload("Salon").First(&reservation, reservation.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Reservation created successfully",
		"reservation": reservation,
	})
}

// ListReservations returns the caller's reservations, newest first
func ListReservations(c *gin.Context) {
	clientID := middleware.GetUserID(c)
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	var reservations []models.Reservation
	config.DB.Preload("Salon").
		Where("client_id = ?", clientID).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&reservations)

	c.JSON(http.StatusOK, gin.H{
		"count":        len(reservations),
		"reservations": reservations,
	})
}

// GetReservation returns one of the caller's reservations
func GetReservation(c *gin.Context) {
	clientID := middleware.GetUserID(c)

	var reservation models.Reservation
	if err := config.DB.Preload("Salon").First(&reservation, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	// Other clients' bookings look like they don't exist.
	if reservation.ClientID != clientID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation})
}

// CancelReservation transitions a booking to cancelled. Payment state is not
// touched; refunds go through the payments API.
func CancelReservation(c *gin.Context) {
	clientID := middleware.GetUserID(c)

	var reservation models.Reservation
	if err := config.DB.First(&reservation, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	if reservation.ClientID != clientID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	if err := statemachine.CanTransition(reservation.Status, models.StatusCancelled, "client"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := config.DB.Model(&reservation).Update("status", models.StatusCancelled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel reservation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reservation cancelled successfully"})
}
