package handlers_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

// signPayload builds a Stripe-Signature header the way the provider does:
// HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, r *gin.Engine, payload, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func checkoutCompletedEvent(sessionID, paymentIntent string, amountTotal int64, metadata map[string]string) string {
	meta := ""
	for k, v := range metadata {
		if meta != "" {
			meta += ","
		}
		meta += fmt.Sprintf("%q:%q", k, v)
	}
	return fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"amount_total": %d,
				"payment_intent": %q,
				"metadata": {%s}
			}
		}
	}`, stripe.APIVersion, sessionID, amountTotal, paymentIntent, meta)
}

func TestCheckoutSessionValidation(t *testing.T) {
	r := setupTest(t)

	// Missing required fields.
	w := doJSON(t, r, http.MethodPost, "/api/payments/create-checkout-session",
		gin.H{"service_type": "manucure"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown salon.
	w = doJSON(t, r, http.MethodPost, "/api/payments/create-checkout-session", gin.H{
		"salon_id":         77,
		"service_type":     "manucure",
		"appointment_date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"price":            45.0,
		"client_email":     "client@example.com",
		"client_name":      "Client",
	}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := setupTest(t)

	payload := checkoutCompletedEvent("cs_test_1", "pi_test_1", 4500, nil)

	w := postWebhook(t, r, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postWebhook(t, r, payload, signPayload(payload, "whsec_wrong"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookConfirmsPendingReservation(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	user := models.User{Email: "client@example.com", Name: "Client"}
	require.NoError(t, config.DB.Create(&user).Error)

	pending := models.Reservation{
		SalonID:         salon.ID,
		ClientID:        user.ID,
		ServiceType:     "manucure",
		AppointmentDate: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Price:           45,
		Status:          models.StatusPendingPayment,
		PaymentStatus:   models.PaymentPending,
	}
	require.NoError(t, config.DB.Create(&pending).Error)

	payload := checkoutCompletedEvent("cs_test_1", "pi_test_1", 4500, map[string]string{
		"reservation_id": fmt.Sprint(pending.ID),
	})
	w := postWebhook(t, r, payload, signPayload(payload, config.AppConfig.StripeWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var res models.Reservation
	require.NoError(t, config.DB.First(&res, pending.ID).Error)
	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, models.PaymentPaid, res.PaymentStatus)
	assert.Equal(t, "pi_test_1", res.StripePaymentID)

	// Exactly one reservation: the webhook transitioned, it did not duplicate.
	var count int64
	config.DB.Model(&models.Reservation{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	user := models.User{Email: "client@example.com", Name: "Client"}
	require.NoError(t, config.DB.Create(&user).Error)

	pending := models.Reservation{
		SalonID:         salon.ID,
		ClientID:        user.ID,
		AppointmentDate: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          models.StatusPendingPayment,
		PaymentStatus:   models.PaymentPending,
	}
	require.NoError(t, config.DB.Create(&pending).Error)

	payload := checkoutCompletedEvent("cs_test_1", "pi_test_1", 4500, map[string]string{
		"reservation_id": fmt.Sprint(pending.ID),
	})
	sig := signPayload(payload, config.AppConfig.StripeWebhookSecret)
	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)
	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)

	var count int64
	config.DB.Model(&models.Reservation{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestWebhookFallbackCreatesFromMetadata(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	appointment := time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)
	payload := checkoutCompletedEvent("cs_test_2", "pi_test_2", 5500, map[string]string{
		"salon_id":         fmt.Sprint(salon.ID),
		"service_type":     "pose",
		"appointment_date": appointment.Format(time.RFC3339),
		"client_email":     "walkin@example.com",
		"client_name":      "Walk In",
	})
	w := postWebhook(t, r, payload, signPayload(payload, config.AppConfig.StripeWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	// The client was provisioned from metadata.
	var user models.User
	require.NoError(t, config.DB.Where("email = ?", "walkin@example.com").First(&user).Error)
	assert.Equal(t, "Walk In", user.Name)

	var res models.Reservation
	require.NoError(t, config.DB.Where("client_id = ?", user.ID).First(&res).Error)
	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, models.PaymentPaid, res.PaymentStatus)
	assert.Equal(t, "pose", res.ServiceType)
	assert.EqualValues(t, 55.0, res.Price)
	assert.True(t, res.AppointmentDate.Equal(appointment))
}

func TestWebhookExpiredSessionFreesSlot(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	user := models.User{Email: "client@example.com", Name: "Client"}
	require.NoError(t, config.DB.Create(&user).Error)

	pending := models.Reservation{
		SalonID:         salon.ID,
		ClientID:        user.ID,
		AppointmentDate: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          models.StatusPendingPayment,
		PaymentStatus:   models.PaymentPending,
	}
	require.NoError(t, config.DB.Create(&pending).Error)

	payload := fmt.Sprintf(`{
		"id": "evt_test_3",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.expired",
		"data": {
			"object": {
				"id": "cs_test_3",
				"object": "checkout.session",
				"metadata": {"reservation_id": %q}
			}
		}
	}`, stripe.APIVersion, fmt.Sprint(pending.ID))

	w := postWebhook(t, r, payload, signPayload(payload, config.AppConfig.StripeWebhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var res models.Reservation
	require.NoError(t, config.DB.First(&res, pending.ID).Error)
	assert.Equal(t, models.StatusCancelled, res.Status)
}

func TestWebhookCompletedAfterClientCancelIsAcknowledged(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	user := models.User{Email: "client@example.com", Name: "Client"}
	require.NoError(t, config.DB.Create(&user).Error)

	// The client cancelled while the checkout was still open.
	cancelled := models.Reservation{
		SalonID:         salon.ID,
		ClientID:        user.ID,
		AppointmentDate: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          models.StatusCancelled,
		PaymentStatus:   models.PaymentPending,
	}
	require.NoError(t, config.DB.Create(&cancelled).Error)

	payload := checkoutCompletedEvent("cs_test_4", "pi_test_4", 4500, map[string]string{
		"reservation_id": fmt.Sprint(cancelled.ID),
	})
	sig := signPayload(payload, config.AppConfig.StripeWebhookSecret)

	// Acknowledged, not retried forever; the row stays terminal.
	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)
	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)

	var res models.Reservation
	require.NoError(t, config.DB.First(&res, cancelled.ID).Error)
	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.Equal(t, models.PaymentPending, res.PaymentStatus)

	var count int64
	config.DB.Model(&models.Reservation{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestWebhookFallbackRedeliveryIsIdempotent(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	appointment := time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)
	payload := checkoutCompletedEvent("cs_test_5", "pi_test_5", 4500, map[string]string{
		"salon_id":         fmt.Sprint(salon.ID),
		"service_type":     "manucure",
		"appointment_date": appointment.Format(time.RFC3339),
		"client_email":     "walkin@example.com",
		"client_name":      "Walk In",
	})
	sig := signPayload(payload, config.AppConfig.StripeWebhookSecret)

	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)
	require.Equal(t, http.StatusOK, postWebhook(t, r, payload, sig).Code)

	var count int64
	config.DB.Model(&models.Reservation{}).Count(&count)
	require.EqualValues(t, 1, count)

	var res models.Reservation
	require.NoError(t, config.DB.First(&res).Error)
	assert.Equal(t, models.PaymentPaid, res.PaymentStatus)
	assert.Equal(t, "pi_test_5", res.StripePaymentID)
}

func TestWebhookFallbackClashWithOtherClientIsRetried(t *testing.T) {
	r := setupTest(t)
	salon := seedSalon(t, "S", "Paris", "€€", 4.5, 30)

	holder := models.User{Email: "holder@example.com", Name: "Holder"}
	require.NoError(t, config.DB.Create(&holder).Error)

	appointment := time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)
	booked := models.Reservation{
		SalonID:         salon.ID,
		ClientID:        holder.ID,
		AppointmentDate: appointment,
		DurationMinutes: 60,
		Status:          models.StatusConfirmed,
		PaymentStatus:   models.PaymentPaid,
		StripePaymentID: "pi_holder",
	}
	require.NoError(t, config.DB.Create(&booked).Error)

	// A paid checkout for somebody else's slot must not be acknowledged.
	payload := checkoutCompletedEvent("cs_test_6", "pi_test_6", 4500, map[string]string{
		"salon_id":         fmt.Sprint(salon.ID),
		"service_type":     "manucure",
		"appointment_date": appointment.Format(time.RFC3339),
		"client_email":     "walkin@example.com",
		"client_name":      "Walk In",
	})
	w := postWebhook(t, r, payload, signPayload(payload, config.AppConfig.StripeWebhookSecret))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// The holder's booking is untouched and nothing new was created.
	var count int64
	config.DB.Model(&models.Reservation{}).Count(&count)
	assert.EqualValues(t, 1, count)

	var res models.Reservation
	require.NoError(t, config.DB.First(&res, booked.ID).Error)
	assert.EqualValues(t, holder.ID, res.ClientID)
	assert.Equal(t, "pi_holder", res.StripePaymentID)
}

func TestRefundUnknownPayment(t *testing.T) {
	r := setupTest(t)

	w := doJSON(t, r, http.MethodPost, "/api/payments/refund",
		gin.H{"payment_intent_id": "pi_missing"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRefundsRequiresPaymentIntent(t *testing.T) {
	r := setupTest(t)

	w := doJSON(t, r, http.MethodGet, "/api/payments/refunds", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
