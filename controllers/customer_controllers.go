package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type CustomerController struct {
	Svc *services.QueueService
}

func NewCustomerController(svc *services.QueueService) *CustomerController {
	return &CustomerController{Svc: svc}
}

// JoinQueue -> public walk-in registration
func (cc *CustomerController) JoinQueue(c *gin.Context) {
	var req services.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, err)
		return
	}

	result, err := cc.Svc.JoinQueue(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, result.Message, result)
}

func (cc *CustomerController) GetQueue(c *gin.Context) {
	entries, err := cc.Svc.GetQueue(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current queue", entries)
}

func (cc *CustomerController) GetCustomer(c *gin.Context) {
	entry, err := cc.Svc.GetCustomer(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", entry)
}

// GetPublicQueue -> queue board for walk-in customers, without contact details
func (cc *CustomerController) GetPublicQueue(c *gin.Context) {
	entries, err := cc.Svc.GetQueue(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current queue", services.PublicEntries(entries))
}

func (cc *CustomerController) GetPublicCustomer(c *gin.Context) {
	entry, err := cc.Svc.GetCustomer(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", entry.Public())
}

// UpdateCustomerStatus -> staff assigns or seats a customer
func (cc *CustomerController) UpdateCustomerStatus(c *gin.Context) {
	var body struct {
		Status      models.CustomerStatus `json:"status" binding:"required"`
		TableNumber *int                  `json:"tableNumber"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, err)
		return
	}

	customer, err := cc.Svc.UpdateCustomerStatus(c.Request.Context(), c.Param("customer_id"), body.Status, body.TableNumber)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer status updated", customer)
}

func (cc *CustomerController) UpdateWaitTime(c *gin.Context) {
	var body struct {
		WaitTime *float64 `json:"waitTime" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, err)
		return
	}

	stored, err := cc.Svc.UpdateWaitTime(c.Request.Context(), c.Param("customer_id"), *body.WaitTime)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Wait time updated", gin.H{"waitTime": stored})
}

func (cc *CustomerController) RemoveCustomer(c *gin.Context) {
	id := c.Param("customer_id")
	if err := cc.Svc.RemoveCustomer(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer removed", gin.H{"id": id})
}

func (cc *CustomerController) ClearQueue(c *gin.Context) {
	removed, err := cc.Svc.ClearQueue(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Queue cleared", gin.H{"removed": removed})
}

// TriggerAssignment -> runs an assignment sweep on demand
func (cc *CustomerController) TriggerAssignment(c *gin.Context) {
	result, err := cc.Svc.TryAssignTablesAutomatically(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Assignment sweep finished", result)
}
