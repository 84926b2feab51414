package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/controllers"
	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
	"gorm.io/gorm"
)

func setupUserRouter(db *gorm.DB, issuer *utils.TokenIssuer, userID uint) *gin.Engine {
	router := gin.New()
	userCtrl := controllers.NewUserController(db, issuer)
	router.POST("/login", userCtrl.Login)
	router.POST("/users", userCtrl.Register)
	router.GET("/profile", func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
		}
		c.Next()
	}, userCtrl.GetProfile)
	return router
}

func TestLogin(t *testing.T) {
	_, db := setupService(t)
	require.NoError(t, database.EnsureAdmin(db, "Admin", "admin@example.com", "secret-pass"))
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	router := setupUserRouter(db, issuer, 0)

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
	}{
		{name: "valid credentials", body: gin.H{"email": "admin@example.com", "password": "secret-pass"}, wantStatus: http.StatusOK},
		{name: "email is case insensitive", body: gin.H{"email": "Admin@Example.com", "password": "secret-pass"}, wantStatus: http.StatusOK},
		{name: "wrong password", body: gin.H{"email": "admin@example.com", "password": "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", body: gin.H{"email": "who@example.com", "password": "secret-pass"}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: gin.H{"email": "admin@example.com"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doRequest(t, router, http.MethodPost, "/login", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, resp.Message)
			if tt.wantStatus != http.StatusOK {
				return
			}
			data := decode[map[string]string](t, resp.Data)
			assert.Equal(t, models.RoleAdmin, data["user_role"])

			claims, err := issuer.ParseToken(data["token"])
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, claims.Role)
		})
	}
}

func TestRegisterAndProfile(t *testing.T) {
	_, db := setupService(t)
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	router := setupUserRouter(db, issuer, 0)

	body := gin.H{"name": "Sari", "email": "sari@example.com", "password": "password123", "role": "staff"}
	w, resp := doRequest(t, router, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	userID := decode[map[string]uint](t, resp.Data)["user_id"]
	require.NotZero(t, userID)

	w, _ = doRequest(t, router, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doRequest(t, router, http.MethodPost, "/users", gin.H{"name": "X", "email": "x@example.com", "password": "password123", "role": "chef"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, router, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = doRequest(t, setupUserRouter(db, issuer, userID), http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "sari@example.com", profile["email"])
	assert.Equal(t, models.RoleStaff, profile["role"])
}
