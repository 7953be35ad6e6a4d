package http

import (
	"encoding/json"
	"net/http"
	"time"

	"assessment-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsPingInterval = 30 * time.Second

// WSHandler drives one attempt over a websocket: it pushes the current
// question and accepts answer and finalize messages.
type WSHandler struct {
	engine   AssessmentEngine
	metrics  *Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine AssessmentEngine, metrics *Metrics, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		engine:  engine,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	TestQuestionID string `json:"testQuestionId"`
	Value          string `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func errorMessage(err error) outboundMessage[any] {
	msg := err.Error()
	if domain.KindOf(err) == domain.KindStorage {
		msg = "internal storage error"
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.CodeOf(err), Message: msg}}
}

// ServeWS upgrades the request and runs the attempt loop until the client
// disconnects or the attempt is finalized. It must run behind RequireUser.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "id")
	userID := UserID(r.Context())
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing "+UserHeader+" header")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	next, err := h.engine.NextQuestion(ctx, userID, attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					return
				}
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	push(outboundMessage[any]{Type: "question", Payload: next})

loop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "next":
			next, err := h.engine.NextQuestion(ctx, userID, attemptID)
			if err != nil {
				push(errorMessage(err))
				continue
			}
			push(outboundMessage[any]{Type: "question", Payload: next})
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: string(domain.KindInvalidInput), Message: "invalid answer payload"}})
				continue
			}
			receipt, err := h.engine.Record(ctx, userID, attemptID, payload.TestQuestionID, payload.Value)
			h.metrics.observeAnswer(receipt, err)
			if err != nil {
				push(errorMessage(err))
				continue
			}
			push(outboundMessage[any]{Type: "answerResult", Payload: receipt})
			push(outboundMessage[any]{Type: "question", Payload: domain.NextQuestion{
				Question: receipt.NextQuestion,
				Progress: receipt.Progress,
			}})
		case "finalize":
			var payload finalizeRequest
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: string(domain.KindInvalidInput), Message: "invalid finalize payload"}})
					continue
				}
			}
			res, err := h.engine.Finalize(ctx, userID, attemptID, payload.Abandoned)
			if err != nil {
				push(errorMessage(err))
				continue
			}
			h.metrics.observeFinalized(res)
			push(outboundMessage[any]{Type: "result", Payload: res})
			break loop
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: string(domain.KindInvalidInput), Message: "unsupported message type"}})
		}
	}

	close(send)
	<-writerDone
}
