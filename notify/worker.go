package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// StartWorker runs the email worker loop in the background and returns the
// server so main can shut it down.
func StartWorker(mailer *Mailer) *asynq.Server {
	srv := asynq.NewServer(
		redisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingConfirmation, handleBookingEmail(mailer, false))
	mux.HandleFunc(TypeBookingReminder, handleBookingEmail(mailer, true))

	go func() {
		zap.L().Info("Starting email worker")
		if err := srv.Run(mux); err != nil {
			zap.L().Error("Email worker stopped", zap.Error(err))
		}
	}()

	return srv
}

func handleBookingEmail(mailer *Mailer, reminder bool) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p BookingEmailPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			zap.L().Error("Invalid email task payload", zap.Error(err))
			return err
		}

		var res models.Reservation
		if err := config.DB.Preload("Salon").Preload("Client").First(&res, p.ReservationID).Error; err != nil {
			return fmt.Errorf("load reservation %d: %w", p.ReservationID, err)
		}

		// A booking cancelled after the task was queued gets no mail.
		if res.Status == models.StatusCancelled {
			zap.L().Info("Skipping email for cancelled reservation",
				zap.Uint("reservation_id", res.ID))
			return nil
		}

		var err error
		if reminder {
			err = mailer.Send24hReminder(res.Client.Email, res.Client.Name,
				res.Salon.Name, res.AppointmentDate, res.ServiceType)
		} else {
			err = mailer.SendBookingConfirmation(res.Client.Email, res.Client.Name,
				res.Salon.Name, res.AppointmentDate, res.ServiceType, res.Price)
		}
		if err != nil {
			// Logged and returned: asynq retries, the caller is never told.
			zap.L().Error("Failed to send booking email",
				zap.Uint("reservation_id", res.ID),
				zap.Bool("reminder", reminder),
				zap.Error(err))
		}
		return err
	}
}
