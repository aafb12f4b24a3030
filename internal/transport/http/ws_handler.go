package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
)

// WellnessService is the set of use cases the websocket drives.
type WellnessService interface {
	Open(ctx context.Context, userID string) (domain.Snapshot, error)
	Start(ctx context.Context, userID string) (domain.Snapshot, error)
	Answer(ctx context.Context, userID, word string) (domain.Snapshot, error)
	Restart(ctx context.Context, userID string) (domain.Snapshot, error)
	Subscribe(ctx context.Context, userID string) (<-chan domain.Snapshot, func(), error)
	Close(ctx context.Context, userID string)
	Leave(ctx context.Context, userID string)
}

type WSHandler struct {
	service  WellnessService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service WellnessService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Word string `json:"word"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request, opens the user's wellness session and streams its state.
// Commands that fail are answered with an error message and leave the state untouched.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	log := h.logger.With(zap.String("user_id", userID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if _, err := h.service.Open(ctx, userID); err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	updates, cancel, err := h.service.Subscribe(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writing. After a failed write it keeps draining
	// send so producers never block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write failed", zap.Error(err))
				failed = true
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if closedByClient := h.readLoop(ctx, conn, userID, send); closedByClient {
		// The session closed the subscription; let the final state reach the client.
		<-updatesDone
	}
	close(closeSignals)
	<-updatesDone
	// The subscription must be gone before Leave checks whether anyone is still watching.
	cancel()
	h.service.Leave(context.Background(), userID)
	close(send)
	<-writerDone
}

// readLoop dispatches commands until the connection drops or the client closes the session,
// in which case it returns true.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, userID string, send chan<- outboundMessage) bool {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return false
		}

		var err error
		switch inbound.Type {
		case "start":
			_, err = h.service.Start(ctx, userID)
		case "answer":
			var payload answerPayload
			if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			_, err = h.service.Answer(ctx, userID, payload.Word)
		case "restart":
			_, err = h.service.Restart(ctx, userID)
		case "close":
			h.service.Close(ctx, userID)
			return true
		default:
			send <- errorMessage("unsupported message type")
			continue
		}
		if err != nil {
			send <- errorMessage(err.Error())
		}
	}
}
