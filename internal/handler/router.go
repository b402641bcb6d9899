package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/steward/internal/model/audio"
	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/overlay"
	"github.com/zhouzirui/steward/internal/service/speech"
	"github.com/zhouzirui/steward/pkg/utils"
)

// Session is the slice of the controller the HTTP surface needs.
type Session interface {
	Snapshot() conv.Session
	Interrupt()
}

// Ledger is the read side of the conversation record.
type Ledger interface {
	All() []conv.Turn
}

// NewRouter wires the control API: overlay delivery, interruption, typed
// input, the conversation record, and the audio frame ingest socket.
func NewRouter(hub *overlay.Hub, audioHub *audio.Hub, session Session, feed *speech.TextFeed, ledger Ledger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	overlayHandler := newOverlayHandler(hub)
	controlHandler := newControlHandler(session, feed, ledger)
	audioHandler := newAudioHandler(audioHub)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Get("/overlay/ws", overlayHandler.handleWebSocket)
		api.Get("/overlay/stream", overlayHandler.handleSSE)

		api.Post("/interrupt", controlHandler.handleInterrupt)
		api.Post("/transcript", controlHandler.handleTranscript)
		api.Get("/transcript", controlHandler.handleHistory)
		api.Get("/state", controlHandler.handleState)

		api.Get("/audio/ws", audioHandler.handleIngest)
	})

	return r
}

// cors keeps the widget, which is served from a file:// or localhost
// origin, able to reach the control API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
