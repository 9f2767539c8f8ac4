package statemachine

import (
	"testing"

	"github.com/WILTYS/bookinails/models"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		from  models.ReservationStatus
		to    models.ReservationStatus
		actor string
		ok    bool
	}{
		{"webhook confirms pending", models.StatusPendingPayment, models.StatusConfirmed, "system", true},
		{"client abandons checkout", models.StatusPendingPayment, models.StatusCancelled, "client", true},
		{"expiry cancels pending", models.StatusPendingPayment, models.StatusCancelled, "system", true},
		{"client cancels confirmed", models.StatusConfirmed, models.StatusCancelled, "client", true},
		{"refund cancels confirmed", models.StatusConfirmed, models.StatusCancelled, "system", true},
		{"salon completes", models.StatusConfirmed, models.StatusCompleted, "salon", true},
		{"client cannot confirm", models.StatusPendingPayment, models.StatusConfirmed, "client", false},
		{"client cannot complete", models.StatusConfirmed, models.StatusCompleted, "client", false},
		{"cancelled is terminal", models.StatusCancelled, models.StatusConfirmed, "system", false},
		{"no double cancel", models.StatusCancelled, models.StatusCancelled, "client", false},
		{"completed is terminal", models.StatusCompleted, models.StatusCancelled, "salon", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.from, tc.to, tc.actor)
			if tc.ok && err != nil {
				t.Fatalf("expected transition to be allowed, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected transition %s -> %s (%s) to be rejected", tc.from, tc.to, tc.actor)
			}
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	t.Parallel()

	nexts := ValidTransitionsFrom(models.StatusPendingPayment)
	if len(nexts) != 2 {
		t.Fatalf("expected 2 next states from pending_payment, got %v", nexts)
	}

	if got := ValidTransitionsFrom(models.StatusCancelled); len(got) != 0 {
		t.Fatalf("cancelled must be terminal, got %v", got)
	}
	if got := ValidTransitionsFrom(models.StatusCompleted); len(got) != 0 {
		t.Fatalf("completed must be terminal, got %v", got)
	}
}
