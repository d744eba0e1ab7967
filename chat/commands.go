package chat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/minutes"
)

// handleCommand runs one command addressed to the bot. target is where
// responses go (a channel, or the requester's nick for private messages);
// fromNick is the requester when the command came from a channel, empty for
// private messages.
func (c *Client) handleCommand(command, target string, respIsAction bool, fromNick string) {
	send := func(line string) {
		if fromNick != "" {
			line = fromNick + ", " + line
		}
		c.SendLine(target, respIsAction, line)
	}
	requester := fromNick
	if requester == "" {
		requester = target
	}

	inChannel := strings.HasPrefix(target, "#")

	if name, header, arg, ok := parseTakeUp(command); ok {
		if !inChannel {
			send(fmt.Sprintf("'%s' only works in a channel", name))
			return
		}
		c.takeUp(target, header, arg, respIsAction, fromNick)
		return
	}

	// A single politeness "?" is ignored. Take-up arguments keep theirs, so a
	// "?" never disappears from an issue URL.
	cmd := strings.TrimSuffix(command, "?")

	switch {
	case strings.EqualFold(cmd, "help"):
		for _, line := range helpLines {
			send(line)
		}
	case strings.EqualFold(cmd, "intro"):
		send("My job is to post the discussions of github issues from IRC minutes as comments in those github issues." +
			"  I split discussions by \"Topic:\" lines, and I know which issue to comment on from lines of the form" +
			" \"GitHub: <issue-url> | none\".")
		if c.cfg.Source != "" {
			send("My source code is at " + c.cfg.Source + ".")
		}
	case strings.EqualFold(cmd, "status"):
		for _, line := range c.statusLines() {
			send(line)
		}
	case strings.EqualFold(cmd, "bye"):
		if !inChannel {
			send("'bye' only works in a channel")
			return
		}
		c.reg.Channel(target).EndTopic()
		c.sendRaw("PART %s :Leaving at request of %s.  Feel free to /invite me back.", target, requester)
	case strings.EqualFold(cmd, "end topic"):
		if !inChannel {
			send("'end topic' only works in a channel")
			return
		}
		c.reg.Channel(target).EndTopic()
	case strings.EqualFold(cmd, "reboot"):
		c.reboot(send, requester)
	default:
		send("Sorry, I don't understand that command.  Try 'help'.")
	}
}

var helpLines = []string{
	"The commands I understand are:",
	"  help - this list of commands",
	"  intro - a description of what I do",
	"  status - my current per-channel state",
	"  take up <github-issue-url> - start a new topic for that issue (also 'topic', 'subtopic', 'take up subtopic')",
	"  end topic - end the current topic without starting a new one",
	"  bye - leave the channel until the next /invite",
	"  reboot - restart me, as long as no topics are in progress",
}

func (c *Client) statusLines() []string {
	lines := []string{fmt.Sprintf("This is minutebot version %s.", config.Version)}
	busy := 0
	for _, st := range c.reg.Statuses() {
		if !st.HasTopic {
			continue
		}
		busy++
		issue := st.GithubURL
		if issue == "" {
			issue = "none"
		}
		lines = append(lines, fmt.Sprintf("In %s, I have %d line(s) buffered for the topic %q (github issue: %s).",
			st.Name, st.BufferedLines, st.Topic, issue))
	}
	if busy == 0 {
		lines = append(lines, "I have no topics in progress right now.")
	}
	return lines
}

func (c *Client) reboot(send func(string), requester string) {
	if len(c.cfg.Owners) > 0 && !containsFold(c.cfg.Owners, requester) {
		send("Sorry, only my owners can tell me to reboot.")
		return
	}
	if busy := c.reg.ChannelsWithTopics(); len(busy) > 0 {
		send(fmt.Sprintf("Sorry, I can't reboot right now because I have buffered topics in %s.",
			strings.Join(busy, ", ")))
		return
	}
	send("OK, I'll reboot now.")
	slog.Info("rebooting at request", slog.String("from", requester))
	go func() {
		c.conn.Quit()
		// Give the QUIT a moment to flush before the supervisor restarts us.
		time.Sleep(500 * time.Millisecond)
		os.Exit(0)
	}()
}

// takeUp ends the current topic and starts a new one for the given issue,
// announcing the issue's title as the new topic line so other minuting bots
// record it too.
func (c *Client) takeUp(target, header, arg string, respIsAction bool, fromNick string) {
	send := func(line string) {
		if fromNick != "" {
			line = fromNick + ", " + line
		}
		c.SendLine(target, respIsAction, line)
	}

	url, resp := minutes.CheckGithubURL(arg, c.cfg.Channel(target))
	if url == "" {
		send(resp)
		return
	}
	ch := c.reg.Channel(target)
	if current, ok := ch.CurrentURL(); ok && current == url {
		send(fmt.Sprintf("ignoring request to take up %s which is already the current github URL", url))
		return
	}
	ch.EndTopic()
	go func() {
		title, err := c.gh.FetchTitle(context.Background(), url)
		if err != nil {
			slog.Warn("failed to fetch issue title", slog.String("url", url), slog.Any("err", err))
			return
		}
		c.SendLine(target, false, header+": "+title)
		send(fmt.Sprintf("OK, I'll post this discussion to %s.", url))
		ch.StartTopicWithURL(title, url)
	}()
}

// parseTakeUp recognizes the four topic-starting command forms and returns
// the command name (for error messages), the topic-line header to announce,
// and the issue-url argument.
func parseTakeUp(cmd string) (name, header, arg string, ok bool) {
	forms := []struct {
		prefix string
		header string
	}{
		{"take up subtopic ", "Subtopic"},
		{"take up ", "Topic"},
		{"subtopic ", "Subtopic"},
		{"topic ", "Topic"},
	}
	for _, f := range forms {
		if rest, found := minutes.StripCIPrefix(cmd, f.prefix); found {
			return strings.TrimSpace(f.prefix), f.header, rest, true
		}
	}
	return "", "", "", false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
