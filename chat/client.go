package chat

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	irc "github.com/thoj/go-ircevent"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/minutes"
	"github.com/wgmeet/minutebot/telemetry"
)

// Client is the IRC side of the bot. It owns the connection, dispatches
// channel traffic to the minuting registry, and handles commands addressed to
// the bot.
type Client struct {
	cfg  *config.Config
	conn *irc.Connection
	reg  *minutes.Registry
	gh   minutes.Commenter

	// sendChunk delivers one already-split segment; swapped out in tests.
	sendChunk func(target string, action bool, segment string)
	// sendRaw emits one raw IRC command; swapped out in tests.
	sendRaw func(format string, args ...interface{})
}

// NewClient creates the IRC connection from cfg. Bind must be called before
// Run.
func NewClient(cfg *config.Config) *Client {
	conn := irc.IRC(cfg.Nick, cfg.Username)
	conn.UseTLS = cfg.UseTLS
	if cfg.UseTLS {
		conn.TLSConfig = &tls.Config{ServerName: cfg.Server}
	}
	conn.Password = cfg.ServerPassword
	conn.QuitMessage = "Rebooting..."

	c := &Client{cfg: cfg, conn: conn}
	c.sendChunk = func(target string, action bool, segment string) {
		if action {
			conn.Action(target, segment)
		} else {
			conn.Privmsg(target, segment)
		}
	}
	c.sendRaw = conn.SendRawf
	c.registerCallbacks()
	return c
}

// Bind wires the client to the minuting registry and the GitHub side. It is
// separate from NewClient because the registry needs the client as its Sender.
func (c *Client) Bind(reg *minutes.Registry, gh minutes.Commenter) {
	c.reg = reg
	c.gh = gh
}

// SendLine implements minutes.Sender: it chunks line to fit the server's
// message budget and sends each segment as PRIVMSG or ACTION.
func (c *Client) SendLine(target string, action bool, line string) {
	for _, segment := range SplitLine(target, action, line) {
		c.sendChunk(target, action, segment)
	}
}

// Run connects and processes IRC traffic until ctx is cancelled or the
// connection is torn down.
func (c *Client) Run(ctx context.Context) error {
	addr := c.cfg.Addr()
	slog.Info("connecting to IRC", slog.String("server", addr), slog.String("nick", c.cfg.Nick))
	if err := c.conn.Connect(addr); err != nil {
		return fmt.Errorf("irc connect %s: %w", addr, err)
	}
	telemetry.SetConnected(true)
	go func() {
		<-ctx.Done()
		c.conn.Quit()
	}()
	c.conn.Loop()
	telemetry.SetConnected(false)
	return nil
}

func (c *Client) registerCallbacks() {
	c.conn.AddCallback("001", func(e *irc.Event) {
		names := make([]string, 0, len(c.cfg.Channels))
		for name := range c.cfg.Channels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			slog.Info("joining channel", slog.String("channel", name))
			c.conn.Join(name)
		}
	})

	c.conn.AddCallback("INVITE", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		channel := e.Arguments[1]
		if c.cfg.Channel(channel) == nil {
			slog.Warn("ignoring invite to unconfigured channel",
				slog.String("channel", channel), slog.String("from", e.Nick))
			return
		}
		slog.Info("rejoining on invite", slog.String("channel", channel), slog.String("from", e.Nick))
		c.conn.Join(channel)
	})

	c.conn.AddCallback("PRIVMSG", func(e *irc.Event) {
		c.handleMessage(e.Nick, e.Arguments[0], e.Message(), false)
	})
	c.conn.AddCallback("CTCP_ACTION", func(e *irc.Event) {
		c.handleMessage(e.Nick, e.Arguments[0], e.Message(), true)
	})
}

func (c *Client) nick() string {
	if c.conn != nil {
		if n := c.conn.GetNick(); n != "" {
			return n
		}
	}
	return c.cfg.Nick
}

// handleMessage routes one incoming message: private messages are commands,
// channel messages addressed to the bot are commands, everything else in a
// configured-style channel feeds the minute taker.
func (c *Client) handleMessage(nick, target, message string, isAction bool) {
	message = minutes.FilterHidden(message)
	mynick := c.nick()

	switch {
	case target == mynick:
		c.handleCommand(message, nick, false, "")
	case strings.HasPrefix(target, "#"):
		ch := c.reg.Channel(target)
		if cmd, ok := commandInChannel(message, mynick); ok {
			c.handleCommand(cmd, target, isAction, nick)
		} else if !minutes.IsPresentPlus(message) {
			ch.AddLine(minutes.Line{Source: nick, IsAction: isAction, Message: message})
		}
		// Any traffic counts as activity, commands and roll call included.
		ch.Touch()
	default:
		slog.Warn("message for unexpected target",
			slog.String("target", target), slog.String("from", nick))
	}
}

// commandInChannel recognizes "mynick: command" and "mynick, command" and
// returns the command with the address stripped.
func commandInChannel(message, mynick string) (string, bool) {
	if !strings.HasPrefix(message, mynick) {
		return "", false
	}
	rest := message[len(mynick):]
	if rest == "" || (rest[0] != ':' && rest[0] != ',') {
		return "", false
	}
	return strings.TrimLeft(rest[1:], " \t"), true
}
