package server

import (
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /ws. Authenticated clients receive their realtime events
// (message.new) on the connection; inbound frames are ignored.
// @Summary Realtime event stream
// @Tags message
// @Param token query string false "Access token"
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("websocket connected", "user_id", userID)
		go client.WritePump()
		client.ReadPump()
		middleware.Logger.Debug("websocket disconnected", "user_id", userID)
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, models.NewValidationError("websocket upgrade required"))
		}
		return upgrade(c)
	}
}
