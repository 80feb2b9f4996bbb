package handler

import (
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/pkg/serverutils"
	"agent-catalog-be/internal/service"
	internalWS "agent-catalog-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ChatSocketHandler serves chat turns and user notifications over a websocket.
type ChatSocketHandler struct {
	chat      service.IChatStreamService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewChatSocketHandler(chat service.IChatStreamService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ChatSocketHandler {
	return &ChatSocketHandler{
		chat:      chat,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *ChatSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/chat/ws", h.Handshake, websocket.New(h.serve))
}

// Handshake authenticates the upgrade request. Browsers cannot set headers on a
// websocket, so the token may come in the "token" query parameter.
func (h *ChatSocketHandler) Handshake(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return dto.ErrUnauthenticated
	}

	userIDStr, err := serverutils.ParseUserToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("WS", "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
		return dto.ErrUnauthenticated
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return dto.ErrUnauthenticated
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("user_id", userID)
	return c.Next()
}

func (h *ChatSocketHandler) serve(c *websocket.Conn) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		c.Close()
		return
	}

	h.logger.Info("WS", "Starting chat socket", map[string]interface{}{"user_id": userID})
	internalWS.ServeWs(h.hub, c, userID, h.chat, h.logger)
	h.logger.Info("WS", "Chat socket ended", map[string]interface{}{"user_id": userID})
}
