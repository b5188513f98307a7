package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonlinemenu/refadmin/internal/session"
	"github.com/wonlinemenu/refadmin/internal/transport/middleware"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// liveMessage is pushed to the browser whenever the session changes.
type liveMessage struct {
	SignedIn bool   `json:"signed_in"`
	Loading  bool   `json:"loading"`
	Version  uint64 `json:"version"`
}

func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// handleLive streams session state so open admin pages reload into the
// login redirect once the visitor is signed out.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.DebugContext(r.Context(), "live upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan session.State, 1)
	stop := v.Session.Watch(func(st session.State) { offerLatest(updates, st) })
	defer stop()
	offerLatest(updates, v.Session.State())

	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case st := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			msg := liveMessage{SignedIn: st.SignedIn(), Loading: st.Loading, Version: st.Version}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(liveWriteWait))
			return
		case <-ctx.Done():
			return
		}
	}
}

// offerLatest replaces any queued state with st without blocking.
func offerLatest(ch chan session.State, st session.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
