// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades the connection and runs the read loop. One goroutine
// per connection; writes happen through the client's writeFn with their own
// timeouts, so a slow reader never blocks the loop.
func WSHandler(logger *logrus.Logger, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"dealer"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		c := &client{
			writeFn: func(ctx context.Context, data []byte) error {
				return conn.Write(ctx, websocket.MessageText, data)
			},
		}
		defer hub.unregister(c)

		ctx := r.Context()
		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				logger.Debugf("websocket closed: %v", err)
				return
			}
			if msgType != websocket.MessageText {
				continue
			}
			hub.handleCommand(ctx, c, data)
		}
	}
}
