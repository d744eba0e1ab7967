package minutes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wgmeet/minutebot/config"
)

var (
	// issuePartRE is the loose pattern used to spot bare mentions anywhere in
	// a line. No anchoring, no fragment handling.
	issuePartRE = regexp.MustCompile(`https://github\.com/[^/]*/[^/]*/(issues|pull)/[0-9]+`)

	// issueWholeRE is the strict pattern a directive argument must match in
	// full. The fragment, if any, is dropped from the stored URL.
	issueWholeRE = regexp.MustCompile(`^(https://github\.com/([^/]*)/([^/]*)/(issues|pull)/([0-9]+))(#[^ ]*)?$`)

	// issueRefRE re-parses a stored URL into its parts when the comment task
	// needs them.
	issueRefRE = regexp.MustCompile(`^https://github\.com/([^/]*)/([^/]*)/(issues|pull)/([0-9]+)$`)
)

const bareMentionWarning = "Because I don't want to spam github issues unnecessarily, " +
	"I won't comment in that github issue unless you write " +
	"\"Github: <issue-url> | none\" (or \"Github issue: ...\"/\"Github topic: ...\")."

// URLUpdate is a requested change to a topic's GitHub association. An empty
// URL means "clear the association".
type URLUpdate struct {
	URL string
}

// ExtractGithubURL inspects a regular channel line for a GitHub directive or
// a bare issue-URL mention. It returns a non-nil update when the association
// should change, and/or a response to send over chat. Directives always take
// precedence over bare mentions. Bare mentions never produce an update: they
// are ignored when they match the current association or when no topic is
// open, and warned about otherwise.
func ExtractGithubURL(message string, cfg *config.ChannelConfig, currentURL string, inTopic bool) (*URLUpdate, string) {
	if arg, ok := stripOneCIPrefix(message, "github:", "github topic:", "github issue:"); ok {
		if strings.EqualFold(arg, "none") {
			return &URLUpdate{}, ""
		}
		url, resp := CheckGithubURL(arg, cfg)
		if url == "" {
			return nil, resp
		}
		return &URLUpdate{URL: url}, ""
	}

	if m := issuePartRE.FindString(message); m != "" {
		if m == currentURL || !inTopic {
			return nil, ""
		}
		return nil, bareMentionWarning
	}
	return nil, ""
}

// CheckGithubURL validates a directive argument against the strict issue-URL
// pattern and the channel's allow-list. On success it returns the canonical
// URL (fragment stripped); on failure it returns an empty URL and the chat
// response explaining why.
func CheckGithubURL(arg string, cfg *config.ChannelConfig) (url, response string) {
	caps := issueWholeRE.FindStringSubmatch(arg)
	if caps == nil {
		return "", "I can't comment on that because it doesn't look like a github issue to me."
	}
	if cfg == nil {
		return "", "I can't comment on that github issue because I don't have a configuration of allowed repositories for this channel."
	}
	owner, repo := caps[2], caps[3]
	for _, allowed := range cfg.GithubReposAllowed {
		slash := strings.Index(allowed, "/")
		if slash < 0 {
			continue
		}
		allowedOwner, allowedRepo := allowed[:slash], allowed[slash+1:]
		if allowedOwner == owner && (allowedRepo == repo || allowedRepo == "*") {
			return caps[1], ""
		}
	}
	return "", fmt.Sprintf(
		"I can't comment on that github issue because it's not in a repository I'm allowed to comment on, which are: %s.",
		strings.Join(cfg.GithubReposAllowed, " "))
}

// IssueRef is a GitHub issue or PR URL decomposed into its parts. It is
// derived from the stored URL string, never stored alongside it.
type IssueRef struct {
	URL    string
	Owner  string
	Repo   string
	Kind   string // "issues" or "pull"
	Number int
}

// ParseIssueRef re-parses a previously validated issue URL. A false return
// means the stored URL no longer matches the pattern that admitted it, which
// callers treat as an internal inconsistency: log and skip, never surface to
// chat.
func ParseIssueRef(url string) (IssueRef, bool) {
	caps := issueRefRE.FindStringSubmatch(url)
	if caps == nil {
		return IssueRef{}, false
	}
	number, err := strconv.Atoi(caps[4])
	if err != nil {
		return IssueRef{}, false
	}
	return IssueRef{
		URL:    url,
		Owner:  caps[1],
		Repo:   caps[2],
		Kind:   caps[3],
		Number: number,
	}, true
}
