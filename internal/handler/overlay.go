package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/steward/internal/overlay"
	"github.com/zhouzirui/steward/pkg/utils"
)

// overlayHandler serves status frames to widgets over websocket and SSE.
type overlayHandler struct {
	hub      *overlay.Hub
	upgrader websocket.Upgrader
}

func newOverlayHandler(hub *overlay.Hub) *overlayHandler {
	return &overlayHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *overlayHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[overlay] upgrade failed: %v", err)
		return
	}
	log.Printf("[overlay] widget connected from %s", r.RemoteAddr)
	h.hub.ServeConn(r.Context(), conn)
}

func (h *overlayHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	frames, detach := h.hub.Attach()
	defer detach()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			utils.SendSSEEvent(w, flusher, "status", frame)
		}
	}
}
