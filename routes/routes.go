package routes

import (
	"github.com/WILTYS/bookinails/handlers"
	"github.com/WILTYS/bookinails/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	// ── Auth ───────────────────────────────────────────────────────
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.GET("/me", middleware.AuthRequired(), handlers.Me)
	}

	// ── Salons (public browse, token optional on create) ───────────
	salons := r.Group("/api/salons")
	{
		salons.GET("/", handlers.ListSalons)
		salons.GET("/search", handlers.SearchSalons)
		salons.GET("/popular", handlers.PopularSalons)
		salons.GET("/nearby", handlers.NearbySalons)
		salons.GET("/:id", handlers.GetSalon)
		salons.GET("/:id/availability", handlers.GetSalonAvailability)
		salons.POST("/", middleware.OptionalAuth(), handlers.CreateSalon)
	}

	// ── Reservations (caller-scoped) ───────────────────────────────
	reservations := r.Group("/api/reservations")
	reservations.Use(middleware.AuthRequired())
	{
		reservations.POST("/", handlers.CreateReservation)
		reservations.GET("/", handlers.ListReservations)
		reservations.GET("/:id", handlers.GetReservation)
		reservations.PATCH("/:id/cancel", handlers.CancelReservation)
	}

	// ── Payments (webhook is called by Stripe, not by clients) ─────
	payments := r.Group("/api/payments")
	{
		payments.POST("/create-checkout-session", handlers.CreateCheckoutSession)
		payments.GET("/session/:id", handlers.GetCheckoutSession)
		payments.POST("/webhook", handlers.StripeWebhook)
		payments.POST("/refund", handlers.CreateRefund)
		payments.GET("/refunds", handlers.ListRefunds)
	}
}
