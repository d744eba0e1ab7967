package minutes

import (
	"sort"
	"sync"

	"github.com/wgmeet/minutebot/config"
)

// ChannelStatus is a point-in-time snapshot of one channel, shared by the
// "status" chat command and the HTTP status endpoint.
type ChannelStatus struct {
	Name          string `json:"name"`
	HasTopic      bool   `json:"has_topic"`
	Topic         string `json:"topic,omitempty"`
	BufferedLines int    `json:"buffered_lines"`
	GithubURL     string `json:"github_url,omitempty"`
}

// Registry maps channel names to their Channel state, creating entries
// lazily. Unconfigured channels still get an entry so directives in them can
// be answered; their nil config makes URL validation refuse everything.
type Registry struct {
	mu        sync.Mutex
	cfg       *config.Config
	sender    Sender
	commenter Commenter
	channels  map[string]*Channel
}

func NewRegistry(cfg *config.Config, sender Sender, commenter Commenter) *Registry {
	return &Registry{
		cfg:       cfg,
		sender:    sender,
		commenter: commenter,
		channels:  make(map[string]*Channel),
	}
}

// Channel returns the state for name, creating it on first use.
func (r *Registry) Channel(name string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[name]; ok {
		return ch
	}
	ch := newChannel(name, r.cfg.Channel(name), r.cfg.ActivityTimeout(), r.sender, r.commenter)
	r.channels[name] = ch
	return ch
}

// ChannelsWithTopics lists, sorted, the channels that currently have an open
// topic. The reboot command refuses to restart while this is non-empty.
func (r *Registry) ChannelsWithTopics() []string {
	var names []string
	for _, ch := range r.snapshot() {
		if ch.HasTopic() {
			names = append(names, ch.name)
		}
	}
	sort.Strings(names)
	return names
}

// Statuses snapshots every known channel, sorted by name.
func (r *Registry) Statuses() []ChannelStatus {
	chans := r.snapshot()
	statuses := make([]ChannelStatus, 0, len(chans))
	for _, ch := range chans {
		statuses = append(statuses, ch.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (r *Registry) snapshot() []*Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	chans := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		chans = append(chans, ch)
	}
	return chans
}
