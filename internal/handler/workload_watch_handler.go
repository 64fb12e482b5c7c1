package handler

import (
	"context"
	"time"

	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const watchWriteWait = 10 * time.Second

// WorkloadWatchHandler pushes a user's workload predictions to dashboard
// clients over a websocket as they are produced on this instance.
type WorkloadWatchHandler struct {
	subscriber message.Subscriber
	topic      string
	jwtSecret  string
	logger     logger.ILogger
}

func NewWorkloadWatchHandler(subscriber message.Subscriber, topic, jwtSecret string, log logger.ILogger) *WorkloadWatchHandler {
	return &WorkloadWatchHandler{
		subscriber: subscriber,
		topic:      topic,
		jwtSecret:  jwtSecret,
		logger:     log,
	}
}

func (h *WorkloadWatchHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/watch", h.ServeWs)
}

// resolveUser takes the user from a token when a secret is configured,
// otherwise from the user_id query parameter.
func (h *WorkloadWatchHandler) resolveUser(c *fiber.Ctx) (string, error) {
	if h.jwtSecret == "" {
		if userID := c.Query("user_id"); userID != "" {
			return userID, nil
		}
		return "", fiber.NewError(fiber.StatusBadRequest, "user_id is required")
	}

	// Browsers cannot set headers on a websocket handshake.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}
	if tokenStr == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing token (query 'token' or Authorization header)")
	}

	userID, err := serverutils.ParseUserToken(h.jwtSecret, tokenStr)
	if err != nil {
		return "", fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "token missing user_id")
	}
	return userID, nil
}

func (h *WorkloadWatchHandler) ServeWs(c *fiber.Ctx) error {
	userID, err := h.resolveUser(c)
	if err != nil {
		return err
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WorkloadWatch", "Watcher connected", map[string]interface{}{"user_id": userID})
		h.stream(conn, userID)
		h.logger.Info("WorkloadWatch", "Watcher disconnected", map[string]interface{}{"user_id": userID})
	})(c)
}

func (h *WorkloadWatchHandler) stream(conn *websocket.Conn, userID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := h.subscriber.Subscribe(ctx, h.topic)
	if err != nil {
		h.logger.Error("WorkloadWatch", "Subscribe failed", map[string]interface{}{"error": err.Error()})
		return
	}

	// Watchers only listen; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range messages {
		msg.Ack()
		ev, err := events.DecodeWorkloadPredicted(msg.Payload)
		if err != nil || ev.UserID != userID {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		if err := conn.WriteJSON(ev.Payload()); err != nil {
			return
		}
	}
}
