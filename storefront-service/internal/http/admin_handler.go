package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/notify"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedBuffer     = 16
)

type AdminHandler struct {
	display  *notify.Display
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewAdminHandler(display *notify.Display, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		display: display,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// admin token is checked before the upgrade
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type NotificationDTO struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	OrderID      string    `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Amount       string    `json:"amount"`
	Timestamp    time.Time `json:"timestamp"`
	Read         bool      `json:"read"`
}

func toNotificationDTO(n notify.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID,
		Type:         n.Type,
		OrderID:      n.OrderID,
		CustomerName: n.CustomerName,
		Amount:       n.Amount.StringFixed(2),
		Timestamp:    n.Timestamp,
		Read:         n.Read,
	}
}

// GET /admin/notifications
func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list := h.display.List()
	out := make([]NotificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationDTO(n))
	}
	respondJSON(w, http.StatusOK, out)
}

// POST /admin/notifications/{id}/read
func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if !h.display.MarkRead(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "not_found", "notification not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /admin/notifications/{id}
func (h *AdminHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.display.Dismiss(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "not_found", "notification not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /admin/notifications/ws streams notifications as the display shows
// them, with the ids the read and dismiss routes take. A slow client misses
// messages rather than blocking checkout.
func (h *AdminHandler) Feed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	out := make(chan notify.Notification, feedBuffer)
	unwatch := h.display.Watch(func(n notify.Notification) {
		select {
		case out <- n:
		default:
			h.logger.Warn("admin feed client too slow, dropping notification", "order_id", n.OrderID)
		}
	})
	defer unwatch()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		select {
		case n := <-out:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(toNotificationDTO(n)); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
