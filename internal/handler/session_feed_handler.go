package handler

import (
	"finscope-be/internal/pkg/logger"
	internalWS "finscope-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionFeedHandler exposes the websocket endpoint that streams
// orchestrator state changes to the UI.
type SessionFeedHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewSessionFeedHandler(hub *internalWS.Hub, log logger.ILogger) *SessionFeedHandler {
	return &SessionFeedHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *SessionFeedHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/session-feed", h.ServeWs)
}

// ServeWs upgrades the request and attaches the client to the hub.
func (h *SessionFeedHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionFeedHandler", "Starting feed session", nil)
		internalWS.ServeWs(h.hub, conn)
		h.logger.Info("SessionFeedHandler", "Feed session ended", nil)
	})(c)
}
