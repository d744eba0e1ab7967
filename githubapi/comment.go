package githubapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wgmeet/minutebot/minutes"
	"github.com/wgmeet/minutebot/telemetry"
)

// mockTarget is where mock-mode comments are replayed so a human (or a test
// harness) can watch what would have been posted.
const mockTarget = "github-comments"

// agendaLabelPrefix marks labels stripped from an issue once the group
// reaches a resolution on it.
const agendaLabelPrefix = "Agenda+"

// CommentAsync posts the topic's comment in a detached task. The channel only
// ever hears the outcome as an emote line; failures never block minuting.
func (c *Client) CommentAsync(channel string, t *minutes.Topic) {
	go c.comment(channel, t)
}

func (c *Client) comment(channel string, t *minutes.Topic) {
	ctx := telemetry.WithCorrelation(context.Background(), uuid.NewString())
	logger := telemetry.LoggerWithCorr(ctx)

	ref, ok := minutes.ParseIssueRef(t.GithubURL)
	if !ok {
		// The URL was validated when it was set; never surface this to chat.
		logger.Warn("skipping comment for unparseable issue URL", slog.String("url", t.GithubURL))
		return
	}
	body := t.CommentBody()

	if c.gh == nil {
		c.mockComment(channel, ref.URL, body)
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "githubapi", "comment",
		attribute.String("issue_url", ref.URL))
	defer span.End()

	var commentMsg string
	var labelMsgs []string
	telemetry.TimeFunc(telemetry.CommentDuration, func() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			comment := &github.IssueComment{Body: github.String(body)}
			if _, _, err := c.gh.Issues.CreateComment(gctx, ref.Owner, ref.Repo, ref.Number, comment); err != nil {
				telemetry.IncCommentsFailed()
				telemetry.RecordError(span, err)
				logger.Error("failed to comment", slog.String("url", ref.URL), slog.Any("err", err))
				commentMsg = fmt.Sprintf("UNABLE TO COMMENT on %s due to error: %v", ref.URL, err)
				return nil
			}
			telemetry.IncCommentsPosted()
			commentMsg = fmt.Sprintf("Successfully commented on %s", ref.URL)
			return nil
		})
		g.Go(func() error {
			if !t.RemoveFromAgenda {
				return nil
			}
			labels, _, err := c.gh.Issues.ListLabelsByIssue(gctx, ref.Owner, ref.Repo, ref.Number, nil)
			if err != nil {
				logger.Error("failed to list labels", slog.String("url", ref.URL), slog.Any("err", err))
				labelMsgs = append(labelMsgs,
					fmt.Sprintf(" and UNABLE TO RETRIEVE LABELS ON %s due to error: %v", ref.URL, err))
				return nil
			}
			for _, label := range labels {
				name := label.GetName()
				if !strings.HasPrefix(name, agendaLabelPrefix) {
					continue
				}
				if _, err := c.gh.Issues.RemoveLabelForIssue(gctx, ref.Owner, ref.Repo, ref.Number, name); err != nil {
					logger.Error("failed to remove label",
						slog.String("url", ref.URL), slog.String("label", name), slog.Any("err", err))
					labelMsgs = append(labelMsgs,
						fmt.Sprintf(" and UNABLE TO REMOVE LABEL %q due to error: %v", name, err))
					continue
				}
				telemetry.IncLabelsRemoved()
				labelMsgs = append(labelMsgs, fmt.Sprintf(" and removed the %q label", name))
			}
			return nil
		})
		// Both tasks fold their failures into the chat report.
		_ = g.Wait()
	})
	telemetry.SetSpanSuccess(span)

	c.sender.SendLine(channel, true, commentMsg+strings.Join(labelMsgs, ""))
}

// mockComment replays the comment body line by line into the mock target,
// bracketed by markers, and reports success to the originating channel the
// same way the real path does.
func (c *Client) mockComment(channel, url, body string) {
	c.sender.SendLine(mockTarget, false, "!BEGIN GITHUB COMMENT IN "+url)
	// No trailing-newline trim: a body ending in "\n" replays a final empty
	// line before the END marker, and the chunker transmits empty lines.
	for _, line := range strings.Split(body, "\n") {
		c.sender.SendLine(mockTarget, false, line)
	}
	c.sender.SendLine(mockTarget, false, "!END GITHUB COMMENT IN "+url)
	c.sender.SendLine(channel, true, "Successfully commented on "+url)
}
