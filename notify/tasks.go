package notify

import (
	"encoding/json"
	"time"

	"github.com/WILTYS/bookinails/config"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeBookingConfirmation = "email:booking_confirmation"
	TypeBookingReminder     = "email:booking_reminder"
)

// BookingEmailPayload references the reservation a task is about. The worker
// reloads the row at delivery time so stale bookings are skipped.
type BookingEmailPayload struct {
	ReservationID uint `json:"reservation_id"`
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

var client *asynq.Client

// InitQueue creates the shared task queue client.
func InitQueue() {
	client = asynq.NewClient(redisOpt())
}

// CloseQueue releases the queue client connection.
func CloseQueue() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func enqueue(typename string, reservationID uint, opts ...asynq.Option) {
	if client == nil {
		return
	}
	b, err := json.Marshal(BookingEmailPayload{ReservationID: reservationID})
	if err != nil {
		zap.L().Error("Failed to marshal email task payload", zap.Error(err))
		return
	}
	if _, err := client.Enqueue(asynq.NewTask(typename, b), opts...); err != nil {
		// Best effort: a booking must never fail because its email could not
		// be queued.
		zap.L().Error("Failed to enqueue email task",
			zap.String("type", typename),
			zap.Uint("reservation_id", reservationID),
			zap.Error(err))
	}
}

// EnqueueBookingConfirmation queues a confirmation email for immediate delivery.
func EnqueueBookingConfirmation(reservationID uint) {
	enqueue(TypeBookingConfirmation, reservationID)
}

// EnqueueBookingReminder schedules the 24h reminder. Appointments less than a
// day away get no reminder.
func EnqueueBookingReminder(reservationID uint, appointment time.Time) {
	fireAt := appointment.Add(-24 * time.Hour)
	if fireAt.Before(time.Now()) {
		return
	}
	enqueue(TypeBookingReminder, reservationID, asynq.ProcessAt(fireAt))
}
