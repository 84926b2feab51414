package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type CleaningLogController struct {
	Svc *services.QueueService
}

func NewCleaningLogController(svc *services.QueueService) *CleaningLogController {
	return &CleaningLogController{Svc: svc}
}

// GetAllCleaningLogs -> newest first
func (clc *CleaningLogController) GetAllCleaningLogs(c *gin.Context) {
	logs, err := clc.Svc.CleaningLogs(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All cleaning logs", logs)
}
