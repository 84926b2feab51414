package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type AdminController struct {
	Svc *services.QueueService
}

func NewAdminController(svc *services.QueueService) *AdminController {
	return &AdminController{Svc: svc}
}

// GetDashboardStats -> table and queue counts for the staff dashboard
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Svc.Stats(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.Errorf("Error loading dashboard stats: %v", err)
		utils.RespondError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"stats":      stats,
		"waitTimers": ac.Svc.Timers.Snapshot(),
	})
}
