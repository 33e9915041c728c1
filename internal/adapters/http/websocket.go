package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
)

// wsAdminKey marks a connection that presented the admin secret on upgrade.
const wsAdminKey = "ws_admin"

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "points" | "cache" | "ratelimit"
}

// channelSubject maps a client-facing channel to its NATS subject. The
// ratelimit channel carries client addresses and is for admins only.
func channelSubject(channel string, admin bool) (string, error) {
	switch channel {
	case "", "points":
		return "footpath.points.>", nil
	case "cache":
		return "footpath.cache.>", nil
	case "ratelimit":
		if !admin {
			return "", fmt.Errorf("channel %s requires the admin secret", channel)
		}
		return "footpath.ratelimit.>", nil
	}
	return "", fmt.Errorf("unknown channel: %s", channel)
}

// wsUpgrade rejects plain HTTP requests on /ws and records whether the
// caller passed ?secret= so restricted channels can be offered.
func wsUpgrade(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(wsAdminKey, validSecret(deps, c.Query("secret")))
		return c.Next()
	}
}

// WebSocketHandler returns a handler that relays service events published on
// NATS to connected clients. Clients send JSON such as
// {"action":"subscribe","channel":"cache"}. Every connection starts
// subscribed to the points channel.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		admin, _ := c.Locals(wsAdminKey).(bool)
		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr, "admin", admin)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		defaultSubject, _ := channelSubject("points", false)
		sub, err := nc.Subscribe(defaultSubject, relay)
		if err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, err := channelSubject(m.Channel, admin)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error()})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
