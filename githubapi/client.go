// Package githubapi contains the GitHub side of the bot: posting meeting
// summaries as issue comments, removing Agenda+ labels after resolutions, and
// resolving issue titles. In mock mode no API client is constructed and
// comments are replayed into a designated IRC channel instead.
package githubapi

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/minutes"
)

// Client implements minutes.Commenter.
type Client struct {
	cfg    *config.Config
	sender minutes.Sender
	gh     *github.Client // nil in mock mode
}

// NewClient builds the GitHub client from cfg. In real mode requests are
// authenticated with the configured access token.
func NewClient(cfg *config.Config, sender minutes.Sender) *Client {
	c := &Client{cfg: cfg, sender: sender}
	if cfg.GithubMode == config.GithubModeReal {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GithubAccessToken})
		tc := oauth2.NewClient(context.Background(), ts)
		c.gh = github.NewClient(tc)
		c.gh.UserAgent = cfg.GithubUAString
	}
	return c
}

// FetchTitle resolves an issue or PR URL to its title. API failures are
// folded into the returned title so callers still get a usable topic line; a
// non-nil error only means the URL doesn't parse.
func (c *Client) FetchTitle(ctx context.Context, issueURL string) (string, error) {
	ref, ok := minutes.ParseIssueRef(issueURL)
	if !ok {
		return "", fmt.Errorf("not a github issue URL: %s", issueURL)
	}
	if c.gh == nil {
		return "TITLE", nil
	}
	// The issues endpoint serves titles for pull requests too.
	issue, _, err := c.gh.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return fmt.Sprintf("COULDN'T GET TITLE due to error %v", err), nil
	}
	return issue.GetTitle(), nil
}
