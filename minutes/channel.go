package minutes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/telemetry"
)

// Sender delivers chat lines to a target, chunked for the transport.
type Sender interface {
	SendLine(target string, action bool, line string)
}

// Commenter is the GitHub side of the bot: detached comment tasks and issue
// title lookups. Implementations must be safe for concurrent use.
type Commenter interface {
	// CommentAsync posts the topic's comment in the background and reports
	// the outcome as an emote line to the channel.
	CommentAsync(channel string, t *Topic)
	// FetchTitle resolves an issue URL to a displayable title. API failures
	// are folded into the returned title; an error means the URL itself no
	// longer parses.
	FetchTitle(ctx context.Context, issueURL string) (string, error)
}

// Channel owns the minuting state for one IRC channel: at most one open
// Topic, the activity timestamp driving the inactivity timer, and the static
// channel configuration. All methods are safe for concurrent use; mutations
// on one channel never block another.
type Channel struct {
	mu        sync.Mutex
	name      string
	cfg       *config.ChannelConfig // nil when the channel is unconfigured
	sender    Sender
	commenter Commenter

	current      *Topic
	lastActivity time.Time
	timerPending bool
	timeout      time.Duration
}

func newChannel(name string, cfg *config.ChannelConfig, timeout time.Duration, sender Sender, commenter Commenter) *Channel {
	return &Channel{
		name:         name,
		cfg:          cfg,
		sender:       sender,
		commenter:    commenter,
		lastActivity: time.Now(),
		// A zero timeout disables the activity timer by pretending one is
		// always pending, so none is ever scheduled.
		timerPending: timeout <= 0,
		timeout:      timeout,
	}
}

// AddLine applies one channel line to the state machine: starting/ending
// topics, applying GitHub directives, recording resolutions, and buffering
// the line under the open topic.
func (c *Channel) AddLine(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl := Classify(l)
	if cl.Class == ClassAttendance {
		return
	}
	telemetry.IncLinesSeen()

	switch cl.Class {
	case ClassTopicStart, ClassSubtopicStart:
		c.startTopicLocked(cl.Argument)
	case ClassMeetingEnd:
		c.endTopicLocked()
	}

	if c.current == nil {
		upd, resp := ExtractGithubURL(l.Message, c.cfg, "", false)
		switch {
		case upd != nil:
			c.respond("I can't set a github URL because you haven't started a topic.")
		case resp != "":
			c.respond("I can't set a github URL because you haven't started a topic.  Also, " + resp)
		}
		return
	}

	t := c.current
	upd, resp := ExtractGithubURL(l.Message, c.cfg, t.GithubURL, true)
	switch {
	case upd == nil:
		if resp != "" {
			c.respond(resp)
		}
	case upd.URL == "" && t.GithubURL == "":
		// Clearing an absent association is a no-op.
	case upd.URL == "":
		c.respond("OK, I won't post this discussion to GitHub.")
	case upd.URL == t.GithubURL:
		// Unchanged.
	default:
		c.announceURL(t.GithubURL, upd.URL)
	}
	if upd != nil {
		t.GithubURL = upd.URL
	}

	if !l.IsAction {
		switch cl.Class {
		case ClassResolution:
			t.Resolutions = append(t.Resolutions, l.Message)
			t.RemoveFromAgenda = true
		case ClassSummary:
			t.Resolutions = append(t.Resolutions, l.Message)
		}
		t.Lines = append(t.Lines, l)
	}
}

// announceURL confirms a changed association once the issue title is known.
// The confirmation is reported against whatever topic is current when the
// fetch resolves; the association itself was already written synchronously.
func (c *Channel) announceURL(oldURL, newURL string) {
	go func() {
		title, err := c.commenter.FetchTitle(context.Background(), newURL)
		if err != nil {
			slog.Warn("failed to fetch issue title", slog.String("url", newURL), slog.Any("err", err))
			return
		}
		if oldURL == "" {
			c.respond(fmt.Sprintf("OK, I'll post this discussion to %s (%s).", newURL, title))
		} else {
			c.respond(fmt.Sprintf("OK, I'll post this discussion to %s (%s) instead of %s like you said before.", newURL, title, oldURL))
		}
	}()
}

func (c *Channel) respond(msg string) {
	c.sender.SendLine(c.name, true, msg)
}

// StartTopic begins a new topic, ending any open one first.
func (c *Channel) StartTopic(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTopicLocked(title)
}

// StartTopicWithURL begins a new topic with the association pre-set, used by
// the "take up" command once the issue title has been fetched.
func (c *Channel) StartTopicWithURL(title, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTopicLocked(title)
	c.current.GithubURL = url
}

// EndTopic closes the open topic, if any, spawning a comment task when the
// topic has an association (and a resolution, in resolutions-only mode).
func (c *Channel) EndTopic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTopicLocked()
}

func (c *Channel) startTopicLocked(title string) {
	c.endTopicLocked()
	group, resolutionsOnly := "", false
	if c.cfg != nil {
		group = c.cfg.Group
		resolutionsOnly = c.cfg.PublishResolutionsOnly
	}
	c.current = NewTopic(title, group, resolutionsOnly)
	telemetry.IncTopicsStarted()
	telemetry.AddOpenTopics(1)
}

func (c *Channel) endTopicLocked() {
	t := c.current
	if t == nil {
		return
	}
	c.current = nil
	telemetry.AddOpenTopics(-1)
	if t.ShouldComment() {
		c.commenter.CommentAsync(c.name, t)
	}
}

// Touch records channel activity and arms the inactivity timer when a topic
// is open and no timer is pending.
func (c *Channel) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
	if c.current != nil && !c.timerPending {
		c.scheduleTimeoutLocked()
	}
}

func (c *Channel) scheduleTimeoutLocked() {
	c.timerPending = true
	deadline := c.lastActivity.Add(c.timeout)
	time.AfterFunc(time.Until(deadline), c.activityTimeoutFired)
}

func (c *Channel) activityTimeoutFired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerPending = false
	if c.current == nil {
		return
	}
	if !time.Now().Before(c.lastActivity.Add(c.timeout)) {
		slog.Info("ending topic after inactivity", slog.String("channel", c.name))
		c.endTopicLocked()
		return
	}
	// Activity arrived between scheduling and firing; rearm from the new
	// last-activity time instead of ending the topic.
	c.scheduleTimeoutLocked()
}

// HasTopic reports whether a topic is currently open.
func (c *Channel) HasTopic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// CurrentURL returns the open topic's association; ok is false when no topic
// is open.
func (c *Channel) CurrentURL() (url string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.GithubURL, true
}

// Status snapshots the channel for the status command and HTTP endpoint.
func (c *Channel) Status() ChannelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := ChannelStatus{Name: c.name}
	if c.current != nil {
		st.HasTopic = true
		st.Topic = c.current.Title
		st.BufferedLines = len(c.current.Lines)
		st.GithubURL = c.current.GithubURL
	}
	return st
}
