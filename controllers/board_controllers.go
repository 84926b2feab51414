package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-queue/board"
	"github.com/yeremiapane/restaurant-queue/utils"
)

const roleCustomer = "customer"

type BoardController struct {
	Board    *board.Board
	upgrader websocket.Upgrader
}

// NewBoardController accepts upgrades from the allowed origins, from any
// origin when allowed holds "*", and from clients that send no Origin.
func NewBoardController(b *board.Board, allowed []string) *BoardController {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return &BoardController{
		Board: b,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Connect -> websocket endpoint. Authenticated staff get their role; anyone
// else is a customer and may follow their own entry with ?customer_id=.
func (bc *BoardController) Connect(c *gin.Context) {
	role := c.GetString("role")
	if role == "" {
		role = roleCustomer
	}

	ws, err := bc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("Error upgrading websocket: %v", err)
		return
	}

	bc.Board.Serve(c.Request.Context(), ws, role, c.Query("customer_id"))
}
