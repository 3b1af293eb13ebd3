package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tictactoe/internal/logger"
)

type envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Drives two players through register → create → join → X wins against a running server.
func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "server host:port")
	flag.Parse()

	suffix := time.Now().Unix()
	tokenA := signup(*addr, fmt.Sprintf("smokeA_%d", suffix))
	tokenB := signup(*addr, fmt.Sprintf("smokeB_%d", suffix))

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	connA := dial(*addr, tokenA)
	defer connA.Close()
	connB := dial(*addr, tokenB)
	defer connB.Close()

	send(connA, "create", "c1", nil)
	created := awaitReply(connA, "c1")
	var session struct {
		ID         string `json:"id"`
		InviteCode string `json:"invite_code"`
	}
	_ = json.Unmarshal(created["session"], &session)
	logger.Info("game created", "session_id", session.ID, "invite_code", session.InviteCode)

	send(connB, "join", "j1", map[string]any{"invite_code": session.InviteCode})
	awaitReply(connB, "j1")

	// X: 0,1,2  O: 3,4
	moves := []struct {
		conn *websocket.Conn
		cell int
	}{{connA, 0}, {connB, 3}, {connA, 1}, {connB, 4}, {connA, 2}}
	var last map[string]json.RawMessage
	for i, m := range moves {
		id := fmt.Sprintf("m%d", i)
		send(m.conn, "move", id, map[string]any{"session_id": session.ID, "cell": m.cell})
		last = awaitReply(m.conn, id)
	}

	logger.Info("smoke test finished", "final", string(last["session"]))
}

func signup(addr, username string) string {
	creds := map[string]string{"username": username, "password": "smoke-pass"}
	post(addr, "/api/v1/users", creds, nil)

	var out struct {
		Token string `json:"token"`
	}
	post(addr, "/api/v1/auth/login", creds, &out)
	return out.Token
}

func post(addr, path string, body, out any) {
	b, _ := json.Marshal(body)
	res, err := http.Post("http://"+addr+path, "application/json", bytes.NewReader(b))
	if err != nil {
		logger.Fatal("http request", "path", path, "error", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		logger.Fatal("http status", "path", path, "status", res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			logger.Fatal("decode response", "path", path, "error", err)
		}
	}
}

func dial(addr, token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", addr, token), nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	return conn
}

func send(conn *websocket.Conn, typ, requestID string, payload any) {
	msg := map[string]any{"type": typ, "request_id": requestID}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		logger.Fatal("write", "type", typ, "error", err)
	}
}

// awaitReply skips broadcast events until the reply (or error) for requestID arrives.
func awaitReply(conn *websocket.Conn, requestID string) map[string]json.RawMessage {
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			logger.Fatal("read", "request_id", requestID, "error", err)
		}
		if env.RequestID != requestID {
			continue
		}
		if env.Type == "error" {
			logger.Fatal("server rejected action", "request_id", requestID, "payload", string(env.Payload))
		}
		var out map[string]json.RawMessage
		_ = json.Unmarshal(env.Payload, &out)
		return out
	}
}
