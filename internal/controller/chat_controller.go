package controller

import (
	"bufio"
	"context"
	"errors"
	"time"

	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/serverutils"
	"agent-catalog-be/internal/service"
	"agent-catalog-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
)

// heartbeatInterval bounds how long a departed SSE client keeps the model call open.
var heartbeatInterval = 15 * time.Second

type IChatController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatStreamService
}

func NewChatController(chatService service.IChatStreamService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/chat", jwtMiddleware)
	h.Post("/stream", c.Stream)
}

// Stream relays one chat turn as server-sent events.
// Failures before the first byte are plain JSON errors; after that they are stream events.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ChatStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.Malformed(err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, err := c.chatService.Begin(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The fiber ctx is recycled once the handler returns; the writer only keeps the turn.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.UserContext()))
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		sink := stream.NewSSESink(w)
		pinging := make(chan struct{})
		go func() {
			defer close(pinging)
			keepAlive(streamCtx, sink, heartbeatInterval, cancel)
		}()

		c.chatService.Stream(streamCtx, turn, sink)
		// w belongs to fasthttp once this returns.
		cancel()
		<-pinging
	})
	return nil
}

type heartbeater interface {
	Heartbeat() error
}

// keepAlive pings the client until ctx ends. fasthttp reports a closed connection
// only on write, so a failed ping cancels the turn.
func keepAlive(ctx context.Context, sink heartbeater, interval time.Duration, cancel context.CancelFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sink.Heartbeat(); err != nil {
				if !errors.Is(err, stream.ErrSinkClosed) {
					cancel()
				}
				return
			}
		}
	}
}
