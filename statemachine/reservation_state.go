package statemachine

import (
	"errors"

	"github.com/WILTYS/bookinails/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.ReservationStatus
	To    models.ReservationStatus
	Actor string // "client", "salon", "system"
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Payment webhook confirms a checkout-initiated booking
	{From: models.StatusPendingPayment, To: models.StatusConfirmed, Actor: "system"},
	// An unpaid checkout can be abandoned or expire
	{From: models.StatusPendingPayment, To: models.StatusCancelled, Actor: "client"},
	{From: models.StatusPendingPayment, To: models.StatusCancelled, Actor: "system"},
	// A confirmed booking can be cancelled by either side, or refunded by the system
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "client"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "salon"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "system"},
	// Salon marks the appointment as done
	{From: models.StatusConfirmed, To: models.StatusCompleted, Actor: "salon"},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.ReservationStatus
	To    models.ReservationStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.ReservationStatus) []models.ReservationStatus {
	var nexts []models.ReservationStatus
	seen := map[models.ReservationStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.ReservationStatus, actor string) error {
	key := transitionKey{From: from, To: to, Actor: actor}
	if transitionMap[key] {
		return nil
	}
	return errors.New(
		"invalid transition: " + string(from) + " -> " + string(to) +
			" is not allowed for actor '" + actor + "'. " +
			"Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(status models.ReservationStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
