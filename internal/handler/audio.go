package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/steward/internal/model/audio"
)

// audioHandler ingests microphone frames from a capture client. Frames
// are raw little-endian 16-bit mono PCM at the fixed capture rate.
type audioHandler struct {
	hub      *audio.Hub
	upgrader websocket.Upgrader
}

func newAudioHandler(hub *audio.Hub) *audioHandler {
	return &audioHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
			ReadBufferSize:  8192,
			WriteBufferSize: 1024,
		},
	}
}

func (h *audioHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[audio] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[audio] capture client connected from %s", r.RemoteAddr)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[audio] capture client gone: %v", err)
			return
		}
		if msgType != websocket.BinaryMessage || len(payload) < 2 {
			continue
		}
		h.hub.Publish(audio.DecodePCM(payload, time.Now()))
	}
}
