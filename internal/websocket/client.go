package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/pkg/serverutils"
	"agent-catalog-be/internal/service"
	"agent-catalog-be/pkg/stream"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
	sendBuffer     = 256
)

// Frame types exchanged over a chat socket.
const (
	FrameChat         = "chat"
	FrameToken        = "token"
	FrameComplete     = "complete"
	FrameError        = "error"
	FrameNotification = "notification"
)

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(frameType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Data: raw})
}

// Client is a middleman between the websocket connection and the hub.
// It runs at most one chat turn at a time.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// Buffered channel of outbound frames. It is never closed; done ends the pumps.
	Send chan []byte

	chat      service.IChatStreamService
	logger    logger.ILogger
	done      chan struct{}
	closeOnce sync.Once
	busy      atomic.Bool
	turns     sync.WaitGroup
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, chat service.IChatStreamService, log logger.ILogger) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		chat:   chat,
		logger: log,
		done:   make(chan struct{}),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue blocks until the frame is queued or the client is gone.
func (c *Client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return stream.ErrSinkClosed
	default:
	}
	select {
	case c.Send <- frame:
		return nil
	case <-c.done:
		return stream.ErrSinkClosed
	}
}

// offer queues the frame unless the buffer is full.
func (c *Client) offer(frame []byte) bool {
	select {
	case <-c.done:
		return false
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(frameType string, data interface{}) {
	frame, err := encodeFrame(frameType, data)
	if err != nil {
		return
	}
	_ = c.enqueue(frame)
}

// readPump reads chat requests until the peer goes away. Closing the connection
// cancels the running turn.
func (c *Client) readPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.close()
		c.turns.Wait()
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WS", "Unexpected socket close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}
		c.handleFrame(ctx, raw)
	}
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != FrameChat {
		c.sendFrame(FrameError, serverutils.ErrorResponse(constant.MessageInvalidRequest))
		return
	}

	var req dto.ChatStreamRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.sendFrame(FrameError, serverutils.ErrorResponse(constant.MessageInvalidRequest))
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		_, body := serverutils.MapError(err)
		c.sendFrame(FrameError, body)
		return
	}

	if !c.busy.CompareAndSwap(false, true) {
		c.sendFrame(FrameError, serverutils.ErrorResponse(constant.MessageTurnInProgress))
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer c.busy.Store(false)

		turn, err := c.chat.Begin(ctx, c.UserID, &req)
		if err != nil {
			_, body := serverutils.MapError(err)
			c.sendFrame(FrameError, body)
			return
		}
		c.chat.Stream(ctx, turn, &Sink{client: c})
	}()
}

// writePump pumps frames from the client queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
