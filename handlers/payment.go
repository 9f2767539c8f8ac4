package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/models"
	"github.com/WILTYS/bookinails/notify"
	"github.com/WILTYS/bookinails/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type CreateCheckoutRequest struct {
	SalonID         uint      `json:"salon_id" binding:"required"`
	ServiceType     string    `json:"service_type" binding:"required"`
	AppointmentDate time.Time `json:"appointment_date" binding:"required"`
	Price           float64   `json:"price" binding:"required"`
	ClientEmail     string    `json:"client_email" binding:"required,email"`
	ClientName      string    `json:"client_name"`
}

type RefundRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	Reason          string `json:"reason"`
}

// resolveClient finds the user for an email, provisioning one when absent.
func resolveClient(email, name string) (*models.User, error) {
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err == nil {
		return &user, nil
	}
	user = models.User{
		Email:          email,
		Name:           name,
		Phone:          "",
		IsProfessional: false,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateCheckoutSession pre-creates a pending reservation and opens a hosted
// Stripe checkout for it. The reservation id travels in the session metadata
// so the webhook can flip exactly that row to paid.
func CreateCheckoutSession(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var salon models.Salon
	if err := config.DB.First(&salon, req.SalonID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Salon not found"})
		return
	}

	client, err := resolveClient(req.ClientEmail, req.ClientName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve client"})
		return
	}

	reservation := models.Reservation{
		SalonID:         req.SalonID,
		ClientID:        client.ID,
		ServiceType:     req.ServiceType,
		AppointmentDate: req.AppointmentDate,
		Price:           req.Price,
		Status:          models.StatusPendingPayment,
		PaymentStatus:   models.PaymentPending,
	}
	if err := insertReservation(config.DB, &reservation); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "This slot is already booked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reservation"})
		return
	}

	appointment := req.AppointmentDate.Format(time.RFC3339)
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("eur"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(fmt.Sprintf("%s - %s", req.ServiceType, salon.Name)),
					Description: stripe.String(fmt.Sprintf("Réservation le %s", appointment)),
				},
				UnitAmount: stripe.Int64(int64(req.Price * 100)),
			},
			Quantity: stripe.Int64(1),
		}},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(config.AppConfig.FrontendURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(config.AppConfig.FrontendURL + "/payment-cancel"),
		CustomerEmail:     stripe.String(req.ClientEmail),
		ClientReferenceID: stripe.String(uuid.NewString()),
	}
	if salon.ImageURL != "" {
		params.LineItems[0].PriceData.ProductData.Images = stripe.StringSlice([]string{salon.ImageURL})
	}
	params.AddMetadata("reservation_id", strconv.FormatUint(uint64(reservation.ID), 10))
	params.AddMetadata("salon_id", strconv.FormatUint(uint64(req.SalonID), 10))
	params.AddMetadata("service_type", req.ServiceType)
	params.AddMetadata("appointment_date", appointment)
	params.AddMetadata("client_email", req.ClientEmail)
	params.AddMetadata("client_name", req.ClientName)

	sess, err := session.New(params)
	if err != nil {
		// The slot must not stay blocked by a checkout that never opened.
		config.DB.Delete(&models.Reservation{}, reservation.ID)
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Erreur Stripe: " + stripeErr.Msg})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout_url": sess.URL,
		"session_id":   sess.ID,
	})
}

// GetCheckoutSession is a passthrough read of provider state
func GetCheckoutSession(c *gin.Context) {
	sess, err := session.Get(c.Param("id"), nil)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session introuvable: " + stripeErr.Msg})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_status":   sess.PaymentStatus,
		"customer_details": sess.CustomerDetails,
		"metadata":         sess.Metadata,
	})
}

// StripeWebhook consumes provider callbacks. Signature failures are the
// caller's fault (400); processing failures are ours and return 500 so
// Stripe redelivers instead of silently dropping a paid booking.
func StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
			return
		}
		if err := handleSuccessfulPayment(&sess); err != nil {
			zap.L().Error("Failed to process completed checkout",
				zap.String("session_id", sess.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
			return
		}

	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
			return
		}
		if err := handleExpiredCheckout(&sess); err != nil {
			zap.L().Error("Failed to process expired checkout",
				zap.String("session_id", sess.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process expiry"})
			return
		}

	case "payment_intent.payment_failed":
		// No booking linkage on the intent itself; nothing to reconcile.
		zap.L().Warn("Payment failed", zap.String("event_id", event.ID))
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// handleSuccessfulPayment transitions the pending reservation referenced by
// the session metadata to confirmed/paid. Sessions without a surviving
// pending row fall back to creating the reservation from metadata, so the
// webhook stays authoritative without ever duplicating a booking.
func handleSuccessfulPayment(sess *stripe.CheckoutSession) error {
	paymentID := ""
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	if idStr := sess.Metadata["reservation_id"]; idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return fmt.Errorf("bad reservation_id %q: %w", idStr, err)
		}

		var res models.Reservation
		findErr := config.DB.First(&res, uint(id)).Error
		if findErr == nil {
			if res.PaymentStatus == models.PaymentPaid {
				// Redelivered event; already settled.
				return nil
			}
			if err := statemachine.CanTransition(res.Status, models.StatusConfirmed, "system"); err != nil {
				// The booking reached a terminal state before the payment
				// arrived (client cancelled mid-checkout). Redelivery will
				// never change that, so acknowledge and leave a trace for
				// support to refund.
				zap.L().Warn("Completed checkout for a reservation that can no longer be confirmed",
					zap.Uint("reservation_id", res.ID),
					zap.String("status", string(res.Status)),
					zap.String("session_id", sess.ID))
				return nil
			}
			updates := map[string]interface{}{
				"status":            models.StatusConfirmed,
				"payment_status":    models.PaymentPaid,
				"stripe_payment_id": paymentID,
			}
			if sess.AmountTotal > 0 {
				updates["price"] = float64(sess.AmountTotal) / 100
			}
			if err := config.DB.Model(&res).Updates(updates).Error; err != nil {
				return err
			}
			notify.EnqueueBookingConfirmation(res.ID)
			notify.EnqueueBookingReminder(res.ID, res.AppointmentDate)
			return nil
		}
	}

	// Fallback: rebuild the booking from metadata alone.
	salonID, err := strconv.ParseUint(sess.Metadata["salon_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("bad salon_id in metadata: %w", err)
	}
	appointment, err := time.Parse(time.RFC3339, sess.Metadata["appointment_date"])
	if err != nil {
		return fmt.Errorf("bad appointment_date in metadata: %w", err)
	}
	client, err := resolveClient(sess.Metadata["client_email"], sess.Metadata["client_name"])
	if err != nil {
		return err
	}

	res := models.Reservation{
		SalonID:         uint(salonID),
		ClientID:        client.ID,
		ServiceType:     sess.Metadata["service_type"],
		AppointmentDate: appointment,
		Price:           float64(sess.AmountTotal) / 100,
		Status:          models.StatusConfirmed,
		PaymentStatus:   models.PaymentPaid,
		StripePaymentID: paymentID,
	}
	if err := insertReservation(config.DB, &res); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// Only swallow the clash when the slot holder is this very
			// booking under another row (e.g. a redelivered event). A slot
			// taken by someone else means a paid checkout with no booking,
			// which must stay visible and keep Stripe redelivering.
			var existing models.Reservation
			findErr := config.DB.
				Where("salon_id = ? AND client_id = ? AND appointment_date = ? AND status <> ?",
					res.SalonID, client.ID, appointment, models.StatusCancelled).
				First(&existing).Error
			if findErr != nil {
				return fmt.Errorf("paid checkout %s clashes with another client's booking", sess.ID)
			}
			if existing.PaymentStatus != models.PaymentPaid {
				return config.DB.Model(&existing).Updates(map[string]interface{}{
					"payment_status":    models.PaymentPaid,
					"stripe_payment_id": paymentID,
				}).Error
			}
			return nil
		}
		return err
	}
	notify.EnqueueBookingConfirmation(res.ID)
	notify.EnqueueBookingReminder(res.ID, res.AppointmentDate)
	return nil
}

// handleExpiredCheckout frees the slot held by an abandoned checkout.
func handleExpiredCheckout(sess *stripe.CheckoutSession) error {
	idStr := sess.Metadata["reservation_id"]
	if idStr == "" {
		return nil
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return fmt.Errorf("bad reservation_id %q: %w", idStr, err)
	}

	var res models.Reservation
	if err := config.DB.First(&res, uint(id)).Error; err != nil {
		return nil
	}
	if statemachine.CanTransition(res.Status, models.StatusCancelled, "system") != nil {
		// Already confirmed or cancelled through another path.
		return nil
	}
	return config.DB.Model(&res).Update("status", models.StatusCancelled).Error
}

// CreateRefund reverses a paid reservation through the provider
func CreateRefund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Reason == "" {
		req.Reason = "requested_by_customer"
	}

	var reservation models.Reservation
	if err := config.DB.Where("stripe_payment_id = ?", req.PaymentIntentID).First(&reservation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	ref, err := refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Reason:        stripe.String(req.Reason),
	})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Erreur Stripe: " + stripeErr.Msg})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create refund"})
		return
	}

	if err := config.DB.Model(&reservation).Updates(map[string]interface{}{
		"status":         models.StatusCancelled,
		"payment_status": models.PaymentRefunded,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reservation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refund_id": ref.ID,
		"status":    ref.Status,
		"amount":    float64(ref.Amount) / 100,
	})
}

// ListRefunds is a passthrough listing from the provider
func ListRefunds(c *gin.Context) {
	paymentIntentID := c.Query("payment_intent_id")
	if paymentIntentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_intent_id is required"})
		return
	}

	iter := refund.List(&stripe.RefundListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	})

	refunds := []gin.H{}
	for iter.Next() {
		r := iter.Refund()
		refunds = append(refunds, gin.H{
			"id":      r.ID,
			"amount":  float64(r.Amount) / 100,
			"status":  r.Status,
			"reason":  r.Reason,
			"created": r.Created,
		})
	}
	if err := iter.Err(); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Erreur Stripe: " + stripeErr.Msg})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list refunds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}
