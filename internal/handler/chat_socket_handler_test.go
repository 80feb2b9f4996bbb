package handler

import (
	"net/http/httptest"
	"testing"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/pkg/serverutils"
	internalWS "agent-catalog-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "socket-secret"

func newSocketApp() *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	h := NewChatSocketHandler(nil, internalWS.NewHub(nil, logger.NewNopLogger()), testSecret, logger.NewNopLogger())
	h.RegisterRoutes(app.Group("/api"))
	return app
}

func TestHandshake(t *testing.T) {
	valid, err := serverutils.IssueUserToken(uuid.NewString(), testSecret, nil)
	require.NoError(t, err)
	forged, err := serverutils.IssueUserToken(uuid.NewString(), "other-secret", nil)
	require.NoError(t, err)
	notUUID, err := serverutils.IssueUserToken("lucia", testSecret, nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{name: "missing token", target: "/api/chat/ws", wantStatus: fiber.StatusUnauthorized},
		{name: "forged token", target: "/api/chat/ws?token=" + forged, wantStatus: fiber.StatusUnauthorized},
		{name: "non uuid subject", target: "/api/chat/ws?token=" + notUUID, wantStatus: fiber.StatusUnauthorized},
		{name: "query token without upgrade", target: "/api/chat/ws?token=" + valid, wantStatus: fiber.StatusUpgradeRequired},
		{name: "header token without upgrade", target: "/api/chat/ws", header: "Bearer " + valid, wantStatus: fiber.StatusUpgradeRequired},
	}

	app := newSocketApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
