package websocket

import (
	"context"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs a chat socket until the peer disconnects.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, chat service.IChatStreamService, log logger.ILogger) {
	client := newClient(hub, c, userID, chat, log)
	hub.registerClient(client)

	go client.writePump()
	client.readPump(context.Background())
}
