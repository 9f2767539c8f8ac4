package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WILTYS/bookinails/config"
	"github.com/WILTYS/bookinails/models"
	"github.com/WILTYS/bookinails/routes"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTest wires an in-memory database and a full router for one test.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret",
		StripeWebhookSecret: "whsec_test",
		FrontendURL:         "http://localhost:3000",
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// Every pooled connection gets its own in-memory database, so the pool
	// must stay at a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	config.DB = db

	r := gin.New()
	routes.SetupRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// loginAs provisions a session for an email via the login endpoint.
func loginAs(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "whatever"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	token, ok := body["access_token"].(string)
	require.True(t, ok, "login response must carry access_token")
	return token
}

func seedSalon(t *testing.T, name, city, priceRange string, rating float64, reviews int) models.Salon {
	t.Helper()
	salon := models.Salon{
		Name:         name,
		Description:  "Salon de manucure",
		Address:      "12 rue des Fleurs",
		City:         city,
		PriceRange:   priceRange,
		Rating:       rating,
		TotalReviews: reviews,
		OpenTime:     "09:00",
		CloseTime:    "18:00",
	}
	require.NoError(t, config.DB.Create(&salon).Error)
	return salon
}
