package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zhouzirui/steward/internal/service/speech"
	"github.com/zhouzirui/steward/pkg/utils"
)

// controlHandler exposes session control: interruption, typed input,
// state inspection, and the conversation record.
type controlHandler struct {
	session Session
	feed    *speech.TextFeed
	ledger  Ledger
}

func newControlHandler(session Session, feed *speech.TextFeed, ledger Ledger) *controlHandler {
	return &controlHandler{session: session, feed: feed, ledger: ledger}
}

func (h *controlHandler) handleInterrupt(w http.ResponseWriter, _ *http.Request) {
	h.session.Interrupt()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "interrupted"})
}

type transcriptRequest struct {
	Text string `json:"text"`
}

func (h *controlHandler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !h.feed.Push(text) {
		utils.RespondError(w, http.StatusTooManyRequests, "input queue full")
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *controlHandler) handleState(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *controlHandler) handleHistory(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"turns": h.ledger.All(),
	})
}
