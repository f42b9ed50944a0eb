package ws

import (
	"context"
	"net/http"

	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/internal/presence"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/pkg/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// TokenVerifier resolves an access token to a username.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Hub bundles what every session shares.
type Hub struct {
	Bus        *Bus
	Registry   *Registry
	Presence   presence.Store
	Membership service.Membership
	Dispatcher *Dispatcher
	Metrics    *metrics.Metrics
}

// ServeWS returns an HTTP handler that upgrades to WebSocket and runs a
// session until it ends. Auth is done via ?token=xxx query param (WebSocket
// can't send headers). A rejected token still gets an upgrade so the client
// can read why.
func ServeWS(hub *Hub, verifier TokenVerifier, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.Ctx(ctx)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("websocket accept failed")
			return
		}

		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			refuse(ctx, conn, "Authentication required")
			return
		}
		username, err := verifier.Verify(tokenStr)
		if err != nil {
			refuse(ctx, conn, "Invalid or expired token")
			return
		}

		session := newSession(conn, username, hub, logger)
		if err := session.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("session not started")
		}
	}
}

func refuse(ctx context.Context, conn *websocket.Conn, reason string) {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	_ = wsjson.Write(writeCtx, conn, AuthFailure{Error: reason})
	conn.Close(websocket.StatusPolicyViolation, reason)
}
