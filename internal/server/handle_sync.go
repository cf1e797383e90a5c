package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/playverse/geohunt/internal/geo"
)

// syncInbound is what a device sends on the sync socket. Position is the
// only message type today; unknown types are ignored so older clients
// keep working.
type syncInbound struct {
	Type     string          `json:"type"`
	Position *geo.Coordinate `json:"position"`
}

// handleSync is the team sync channel: devices stream position samples up
// and receive the team's and game's broadcast events down. Delivery down
// is at-least-once and unordered across clients; anything that needs real
// ordering goes through the server-stamped attempt log.
func handleSync(logger *slog.Logger, store Store, hub *Hub, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}
		sess, err := store.PlayerFromToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		run, err := hub.Session(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		teamCh := broker.Subscribe(teamTopic(sess.TeamID))
		defer broker.Unsubscribe(teamTopic(sess.TeamID), teamCh)
		gameCh := broker.Subscribe(gameTopic(sess.GameID))
		defer broker.Unsubscribe(gameTopic(sess.GameID), gameCh)

		// Writer: fan broadcast events down to this device.
		go func() {
			for {
				var data []byte
				select {
				case <-ctx.Done():
					return
				case data = <-teamCh:
				case data = <-gameCh:
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					cancel()
					return
				}
			}
		}()

		// Reader: position samples up.
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				logger.Debug("websocket read ended", "error", err)
				return
			}

			var in syncInbound
			if err := json.Unmarshal(msg, &in); err != nil || in.Type != "position" {
				continue
			}

			run.SubmitPosition(in.Position)
			broker.Publish(gameTopic(sess.GameID), SyncEvent{
				Type:     "team_position",
				TeamID:   sess.TeamID,
				Position: in.Position,
			})
		}
	}
}
