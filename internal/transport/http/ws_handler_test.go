package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"timed-quiz/internal/app"
	"timed-quiz/internal/domain"
	"timed-quiz/internal/engine"
	"timed-quiz/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?bank=bank-1&name=Alice")
	defer conn.Close()

	seen := readUntil(t, conn, "state", "question")
	if seen["state"]["state"] != string(domain.StateActive) {
		t.Fatalf("expected active state, got %v", seen["state"])
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"choice": 1}})
	seen = readUntil(t, conn, "answerResult")
	if seen["answerResult"]["correct"] != true {
		t.Fatalf("expected correct answer, got %v", seen["answerResult"])
	}

	send(t, conn, map[string]any{"type": "hint"})
	seen = readUntil(t, conn, "hintResult")
	if seen["hintResult"]["score"] != float64(0) {
		t.Fatalf("expected score 0 after hint, got %v", seen["hintResult"])
	}

	send(t, conn, map[string]any{"type": "hint"})
	seen = readUntil(t, conn, "error")
	if seen["error"]["code"] != "insufficient_score" {
		t.Fatalf("expected insufficient_score, got %v", seen["error"])
	}

	send(t, conn, map[string]any{"type": "end"})
	seen = readUntil(t, conn, "result")
	if seen["result"]["askedCount"] != float64(1) || seen["result"]["cause"] != string(domain.CauseAbandoned) {
		t.Fatalf("unexpected result %v", seen["result"])
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"choice": 0}})
	seen = readUntil(t, conn, "error")
	if seen["error"]["code"] != "invalid_state" {
		t.Fatalf("expected invalid_state after end, got %v", seen["error"])
	}
}

func TestWebSocketRejectsShortCustomQuestion(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?bank=bank-1&name=Alice")
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, map[string]any{"type": "addQuestion", "payload": map[string]any{
		"kind":         "choice",
		"prompt":       "Hi",
		"options":      []string{"a", "b", "c", "d"},
		"correctIndex": 0,
	}})
	seen := readUntil(t, conn, "error")
	if seen["error"]["code"] != "validation" {
		t.Fatalf("expected validation error, got %v", seen["error"])
	}
}

func TestWebSocketUnknownBank(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?bank=missing&name=Alice")
	defer conn.Close()
	seen := readUntil(t, conn, "error")
	if seen["error"]["code"] != "not_found" {
		t.Fatalf("expected not_found, got %v", seen["error"])
	}
}

func TestWebSocketRequiresParams(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?bank=bank-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestEnqueueStopsWhenWriterQuits(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !enqueue(send, writerDone, outboundMessage[any]{Type: "state"}) {
		t.Fatalf("expected first message to be buffered")
	}
	close(writerDone)

	returned := make(chan bool, 1)
	go func() {
		returned <- enqueue(send, writerDone, outboundMessage[any]{Type: "state"})
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Fatalf("expected enqueue to fail after writer quit")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full buffer with no writer")
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Policy = domain.PolicySequential
	cfg.TickInterval = 0

	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.Bank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.Question{
				domain.NewChoiceQuestion("What is 2 + 2?", []string{"3", "4", "5"}, 1),
				domain.NewChoiceQuestion("What is 3 + 3?", []string{"6", "7", "8"}, 0),
			},
		},
	}), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), banks, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	return httptest.NewServer(mux)
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until every wanted type has been seen and returns
// the last payload of each.
func readUntil(t *testing.T, conn *websocket.Conn, types ...string) map[string]map[string]any {
	t.Helper()
	want := make(map[string]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	seen := make(map[string]map[string]any)
	for i := 0; i < 20 && len(want) > 0; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		seen[msg.Type] = msg.Payload
		delete(want, msg.Type)
	}
	if len(want) > 0 {
		t.Fatalf("did not see %v", want)
	}
	return seen
}
