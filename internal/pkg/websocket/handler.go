package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
)

// Handler upgrades authenticated requests to websocket connections
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// HandleConnection godoc
// @Summary Subscribe to realtime events
// @Description Upgrades to a WebSocket that receives application and payment events for the caller and the caller's role. The access token may be passed as the token query parameter.
// @Tags realtime
// @Security BearerAuth
// @Param token query string false "Access token when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	accountID, okID := c.Get("accountID")
	roleValue, okRole := c.Get("role")
	id, okIDType := accountID.(int64)
	role, okRoleType := roleValue.(models.Role)
	if !okID || !okRole || !okIDType || !okRoleType {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("accountID", id).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := newClient(h.hub, conn, id, role, conn.RemoteAddr().String(), h.logger)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
