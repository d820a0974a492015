package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Publisher hands each connected client an outbox of ready-to-send text frames.
// Join must send the current state into out right away if there is one. The
// publisher closes out to disconnect a client.
type Publisher interface {
	Join(clientID string, out chan []byte)
	Leave(clientID string)
}

// Handler pushes frames from pub to one browser or feed client. Clients are not
// expected to send anything; reads only detect the close.
func Handler(pub Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 8)
		clientID := uuid.NewString()

		pub.Join(clientID, out)
		defer pub.Leave(clientID)
		log.Debug("client joined", zap.String("client", clientID), zap.String("remote", r.RemoteAddr))

		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-out:
				if !ok {
					// Dropped by the publisher (slow or shutting down).
					conn.Close(websocket.StatusGoingAway, "dropped")
					return
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					log.Debug("write to client", zap.String("client", clientID), zap.Error(err))
					return
				}
			}
		}
	}
}
