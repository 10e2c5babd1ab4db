package operator

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/auth"
	"github.com/drydock-dev/drydock/internal/notify"
)

// WSHandler upgrades operator connections onto the notification hub. Auth is
// handled here rather than by the bearer middleware because browser WebSocket
// clients cannot set an Authorization header; the token may arrive as the
// "token" query parameter instead.
type WSHandler struct {
	hub      *notify.Hub
	jwtMgr   *auth.JWTManager
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(hub *notify.Hub, jwtMgr *auth.JWTManager, allowedOrigins string, log *slog.Logger) *WSHandler {
	origins := make(map[string]struct{})
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}

	return &WSHandler{
		hub:    hub,
		jwtMgr: jwtMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		log: log,
	}
}

func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "missing token")
		return
	}
	if _, err := h.jwtMgr.Validate(token); err != nil {
		response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "invalid token")
		return
	}

	topics := notify.ParseTopics(r.URL.Query().Get("topics"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	h.hub.Attach(conn, topics)
}
