package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/carcompanion/internal/adapters/nats"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

// wsMessage is sent by the client to subscribe or unsubscribe to a channel.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Device  string `json:"device"`  // device filter (optional, "" = all)
	Channel string `json:"channel"` // "notices" | "trips" | "positions" | "map" | "push" (default: notices)
}

// wsEvent wraps a relayed bus message with the subject it came from.
type wsEvent struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// channelSubject maps a client channel to the NATS subject carrying it.
func channelSubject(channel, device string) (string, bool) {
	if device == "" {
		device = "*"
	}
	switch channel {
	case "", "notices":
		return natsadapter.NoticeSubject(device), true
	case "trips":
		return natsadapter.TripSubject(device), true
	case "positions":
		return natsadapter.PositionSubject(device), true
	case "map":
		return natsadapter.MapSubject(device), true
	case "push":
		return natsadapter.PushSubject(device) + ".events", true
	case "all":
		return natsadapter.AllUpdates, true
	}
	return "", false
}

// WebSocketHandler returns a handler that relays notices, trips, positions,
// map scenes and push events from NATS to the connected client. Notices of every
// device are relayed until the client subscribes elsewhere.
// Clients send JSON: {"action":"subscribe","device":"car-1","channel":"trips"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger := slog.Default().With("remote", remoteAddr)
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

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
			if !json.Valid(msg.Data) {
				return
			}
			_ = writeJSON(wsEvent{Subject: msg.Subject, Data: msg.Data})
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "event bus not connected"})
			return
		}

		defaultSubject, _ := channelSubject("notices", "")
		sub, err := nc.Subscribe(defaultSubject, relay)
		if err != nil {
			logger.Error("ws default subscribe failed", "error", err)
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

			subject, ok := channelSubject(m.Channel, m.Device)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
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
		logger.Info("ws client disconnected")
	}
}
