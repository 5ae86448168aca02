package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/studyplanner/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client for the caller's user id.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	opts := acceptOptions(originPatterns)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Long-lived connection; lift the server's write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		logger.Debug("websocket connected", "user_id", userID)
		NewClient(hub, conn, userID).Run(r.Context())
		logger.Debug("websocket disconnected", "user_id", userID)
	}
}

// acceptOptions turns allowed origins (full URLs or bare hosts) into the host
// patterns the websocket library matches against.
func acceptOptions(origins []string) *ws.AcceptOptions {
	var hosts []string
	for _, o := range origins {
		if o == "*" {
			return &ws.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return &ws.AcceptOptions{OriginPatterns: hosts}
}
