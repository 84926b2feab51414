package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type TableController struct {
	Svc *services.QueueService
}

func NewTableController(svc *services.QueueService) *TableController {
	return &TableController{Svc: svc}
}

// CreateTable -> adds a table; number may be omitted to take the next one
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number   int `json:"number"`
		Capacity int `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Svc.AddTable(c.Request.Context(), req.Number, req.Capacity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Svc.GetTables(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		Status models.TableStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Svc.UpdateTableStatus(c.Request.Context(), c.Param("table_id"), body.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d status changed to %s", table.Number, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// DeleteTable -> only Available tables can be removed
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("table_id")
	if err := tc.Svc.RemoveTable(c.Request.Context(), tableID); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %s deleted", tableID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": tableID})
}

// CompleteService -> Occupied table goes to Cleaning, then back to Available
func (tc *TableController) CompleteService(c *gin.Context) {
	table, err := tc.Svc.CompleteService(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Service completed, table is being cleaned", table)
}

func (tc *TableController) FreeTable(c *gin.Context) {
	table, err := tc.Svc.FreeTable(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table freed", table)
}

func (tc *TableController) ReserveTable(c *gin.Context) {
	table, err := tc.Svc.ReserveTable(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table reserved", table)
}
