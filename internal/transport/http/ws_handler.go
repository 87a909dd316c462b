package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"timed-quiz/internal/app"
	"timed-quiz/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler binds one websocket connection to one timed session.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
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

type hintResult struct {
	Score int `json:"score"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets, creates a session for the
// requested bank and starts it for the named player.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bankID := r.URL.Query().Get("bank")
	name := r.URL.Query().Get("name")
	if bankID == "" || name == "" {
		http.Error(w, "missing bank or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, err := h.service.Create(ctx, bankID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer h.service.Close(context.Background(), sessionID)

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) bool {
		return enqueue(send, writerDone, msg)
	}

	snapshot, err := h.service.Start(ctx, sessionID, name)
	if err != nil {
		reply(errorMessage(err))
	} else {
		reply(outboundMessage[any]{Type: "state", Payload: snapshot})
	}
	log.Printf("session %s started on bank %s", sessionID, bankID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !reply(h.dispatch(ctx, sessionID, name, inbound)) {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
	log.Printf("session %s closed", sessionID)
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID, name string, inbound inboundMessage) outboundMessage[any] {
	switch inbound.Type {
	case "answer":
		var answer domain.Answer
		if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "invalid answer payload"}}
		}
		outcome, err := h.service.SubmitAnswer(ctx, sessionID, answer)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "answerResult", Payload: outcome}
	case "hint":
		score, err := h.service.UseHint(ctx, sessionID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "hintResult", Payload: hintResult{Score: score}}
	case "end":
		result, err := h.service.End(ctx, sessionID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "result", Payload: result}
	case "result":
		result, err := h.service.Result(ctx, sessionID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "result", Payload: result}
	case "reset":
		snapshot, err := h.service.Reset(ctx, sessionID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "state", Payload: snapshot}
	case "start":
		snapshot, err := h.service.Start(ctx, sessionID, name)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "state", Payload: snapshot}
	case "state":
		snapshot, err := h.service.Snapshot(ctx, sessionID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "state", Payload: snapshot}
	case "addQuestion":
		var q domain.Question
		if err := json.Unmarshal(inbound.Payload, &q); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "invalid question payload"}}
		}
		added, err := h.service.AddCustomQuestion(ctx, sessionID, q)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "questionAdded", Payload: added}
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "unsupported message type"}}
	}
}

// enqueue hands msg to the writer and reports false once the writer has quit.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}
}

func toErrorPayload(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		code = "invalid_state"
	case errors.Is(err, domain.ErrInsufficientScore):
		code = "insufficient_score"
	case errors.Is(err, domain.ErrBankNotFound), errors.Is(err, domain.ErrSessionNotFound):
		code = "not_found"
	case domain.IsValidation(err):
		code = "validation"
	}
	return errorPayload{Code: code, Message: err.Error()}
}
