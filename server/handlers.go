package server

import (
	"encoding/json"
	"net/http"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/minutes"
)

// StatusSource is the part of the channel registry the HTTP API needs.
type StatusSource interface {
	Statuses() []minutes.ChannelStatus
}

// Handlers carries the dependencies of the HTTP endpoints.
type Handlers struct {
	cfg *config.Config
	reg StatusSource
}

func NewHandlers(cfg *config.Config, reg StatusSource) *Handlers {
	return &Handlers{cfg: cfg, reg: reg}
}

// HandleHealthz responds to liveness probe requests. The bot has no backing
// store, so liveness is just "the process is serving".
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	Version    string                  `json:"version"`
	GithubMode string                  `json:"github_mode"`
	Channels   []minutes.ChannelStatus `json:"channels"`
}

// HandleStatus reports the bot version and a snapshot of every channel's
// minuting state, mirroring the "status" chat command.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		Version:    config.Version,
		GithubMode: h.cfg.GithubMode,
		Channels:   h.reg.Statuses(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
