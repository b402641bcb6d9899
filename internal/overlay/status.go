// Package overlay feeds the on-screen status widget. The session
// controller publishes state changes; connected widgets receive them over
// websocket or SSE.
package overlay

import (
	"time"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
)

// Status is one frame of widget state.
type Status struct {
	StatusText string          `json:"statusText"`
	Color      sentiment.Color `json:"color"`
	IsActive   bool            `json:"isActive"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Idle is what the widget shows when no session is running.
func Idle() Status {
	return Status{
		StatusText: "Standing by",
		Color:      sentiment.ColorCyan,
		IsActive:   false,
		UpdatedAt:  time.Now(),
	}
}
