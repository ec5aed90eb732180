package wsocket

import (
	"context"
	"net/http"
	"time"

	"chatseek_go_backend/internal/models"
	"chatseek_go_backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// Subscriber is the subscribing half of the activity broker.
type Subscriber interface {
	Subscribe(topic string) <-chan interface{}
	Unsubscribe(topic string, ch <-chan interface{})
}

type Handler struct {
	broker       Subscriber
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

type Message struct {
	Type     string                 `json:"type"`
	Activity *services.ChatActivity `json:"activity,omitempty"`
}

func NewHandler(broker Subscriber, upgrader websocket.Upgrader, pingInterval time.Duration) *Handler {
	return &Handler{
		broker:       broker,
		upgrader:     upgrader,
		pingInterval: pingInterval,
	}
}

// HandleWebSocket pushes the user's chat activity until either side closes.
// Inbound frames are only read to notice the close.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user *models.User) {
	log := zerolog.Ctx(r.Context()).With().Str("user_id", user.ID.String()).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := services.ActivityTopic(user.ID)
	activity := h.broker.Subscribe(topic)
	defer h.broker.Unsubscribe(topic, activity)

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Debug().Err(err).Msg("Websocket closed by client")
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	log.Debug().Msg("Websocket connected")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-activity:
			if !ok {
				return
			}
			event, ok := msg.(services.ChatActivity)
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: "chat_activity", Activity: &event}); err != nil {
				log.Debug().Err(err).Msg("Error sending chat activity")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}
