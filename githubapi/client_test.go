package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v68/github"

	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/minutes"
)

type sentLine struct {
	target string
	action bool
	line   string
}

type recordingSender struct {
	mu    sync.Mutex
	lines []sentLine
}

func (s *recordingSender) SendLine(target string, action bool, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, sentLine{target, action, line})
}

func (s *recordingSender) all() []sentLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentLine(nil), s.lines...)
}

const testIssue = "https://github.com/w3c/csswg-drafts/issues/123"

func newAPIClient(t *testing.T, handler http.Handler) (*Client, *recordingSender) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	gh.BaseURL = base

	sender := &recordingSender{}
	cfg := &config.Config{GithubMode: config.GithubModeReal}
	return &Client{cfg: cfg, sender: sender, gh: gh}, sender
}

func commentedTopic() *minutes.Topic {
	topic := minutes.NewTopic("Grid sizing", "CSS Working Group", false)
	topic.GithubURL = testIssue
	topic.Lines = []minutes.Line{
		{Source: "dbaron", Message: "Topic: Grid sizing"},
		{Source: "fantasai", Message: "RESOLUTION: adopt option A"},
	}
	topic.Resolutions = []string{"RESOLUTION: adopt option A"}
	return topic
}

func TestCommentSuccess(t *testing.T) {
	var gotBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		var payload struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("bad comment payload: %v", err)
		}
		gotBody = payload.Body
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})

	c, sender := newAPIClient(t, mux)
	c.comment("#css", commentedTopic())

	if !strings.Contains(gotBody, "The CSS Working Group just discussed `Grid sizing`") {
		t.Errorf("comment body = %q", gotBody)
	}

	lines := sender.all()
	if len(lines) != 1 {
		t.Fatalf("got %d chat lines, want 1: %v", len(lines), lines)
	}
	if lines[0].target != "#css" || !lines[0].action {
		t.Errorf("report should be an emote to the channel: %+v", lines[0])
	}
	if lines[0].line != "Successfully commented on "+testIssue {
		t.Errorf("report = %q", lines[0].line)
	}
}

func TestCommentFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "nope"}`, http.StatusInternalServerError)
	})

	c, sender := newAPIClient(t, mux)
	c.comment("#css", commentedTopic())

	lines := sender.all()
	if len(lines) != 1 {
		t.Fatalf("got %d chat lines, want 1: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0].line, "UNABLE TO COMMENT on "+testIssue+" due to error: ") {
		t.Errorf("report = %q", lines[0].line)
	}
}

func TestCommentRemovesAgendaLabels(t *testing.T) {
	var removed []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/labels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "Agenda+"}, {"name": "bug"}, {"name": "Agenda+ F2F"}]`)
	})
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/labels/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		mu.Lock()
		removed = append(removed, strings.TrimPrefix(r.URL.Path, "/repos/w3c/csswg-drafts/issues/123/labels/"))
		mu.Unlock()
	})

	topic := commentedTopic()
	topic.RemoveFromAgenda = true

	c, sender := newAPIClient(t, mux)
	c.comment("#css", topic)

	mu.Lock()
	defer mu.Unlock()
	if len(removed) != 2 {
		t.Fatalf("removed labels = %v, want the two Agenda+ ones", removed)
	}

	lines := sender.all()
	if len(lines) != 1 {
		t.Fatalf("got %d chat lines, want 1", len(lines))
	}
	report := lines[0].line
	if !strings.HasPrefix(report, "Successfully commented on "+testIssue) {
		t.Errorf("report = %q", report)
	}
	if !strings.Contains(report, ` and removed the "Agenda+" label`) {
		t.Errorf("report missing label removal: %q", report)
	}
	if !strings.Contains(report, ` and removed the "Agenda+ F2F" label`) {
		t.Errorf("report missing second label removal: %q", report)
	}
	if strings.Contains(report, "bug") {
		t.Errorf("non-agenda label must not be touched: %q", report)
	}
}

func TestCommentLabelListFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123/labels", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "nope"}`, http.StatusInternalServerError)
	})

	topic := commentedTopic()
	topic.RemoveFromAgenda = true

	c, sender := newAPIClient(t, mux)
	c.comment("#css", topic)

	lines := sender.all()
	if len(lines) != 1 {
		t.Fatalf("got %d chat lines, want 1", len(lines))
	}
	report := lines[0].line
	if !strings.HasPrefix(report, "Successfully commented on "+testIssue) {
		t.Errorf("report = %q", report)
	}
	if !strings.Contains(report, " and UNABLE TO RETRIEVE LABELS ON "+testIssue+" due to error: ") {
		t.Errorf("report = %q", report)
	}
}

func TestCommentUnparseableURLSkipped(t *testing.T) {
	sender := &recordingSender{}
	c := &Client{cfg: &config.Config{GithubMode: config.GithubModeMock}, sender: sender}

	topic := commentedTopic()
	topic.GithubURL = "https://example.com/not-github"
	c.comment("#css", topic)

	if lines := sender.all(); len(lines) != 0 {
		t.Errorf("nothing should be sent for an unparseable URL, got %v", lines)
	}
}

func TestMockModeReplaysComment(t *testing.T) {
	sender := &recordingSender{}
	c := &Client{cfg: &config.Config{GithubMode: config.GithubModeMock}, sender: sender}

	c.comment("#css", commentedTopic())

	lines := sender.all()
	if len(lines) < 4 {
		t.Fatalf("got %d lines, want replay plus report: %v", len(lines), lines)
	}
	if lines[0].target != "github-comments" || lines[0].line != "!BEGIN GITHUB COMMENT IN "+testIssue {
		t.Errorf("first line = %+v", lines[0])
	}
	last := lines[len(lines)-1]
	if last.target != "#css" || !last.action || last.line != "Successfully commented on "+testIssue {
		t.Errorf("final report = %+v", last)
	}
	end := lines[len(lines)-2]
	if end.target != "github-comments" || end.line != "!END GITHUB COMMENT IN "+testIssue {
		t.Errorf("end marker = %+v", end)
	}
	// The body ends with a newline, so the replay ends with an empty line.
	if trailer := lines[len(lines)-3]; trailer.target != "github-comments" || trailer.line != "" {
		t.Errorf("line before end marker = %+v, want empty replay line", trailer)
	}
	replayed := false
	for _, l := range lines[1 : len(lines)-2] {
		if l.target != "github-comments" || l.action {
			t.Errorf("replay line must be a plain message to the mock target: %+v", l)
		}
		if strings.Contains(l.line, "The CSS Working Group just discussed") {
			replayed = true
		}
	}
	if !replayed {
		t.Error("comment body was not replayed")
	}
}

func TestFetchTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/w3c/csswg-drafts/issues/123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 123, "title": "Grid sizing rules"}`)
	})
	c, _ := newAPIClient(t, mux)

	title, err := c.FetchTitle(context.Background(), testIssue)
	if err != nil {
		t.Fatalf("FetchTitle: %v", err)
	}
	if title != "Grid sizing rules" {
		t.Errorf("title = %q", title)
	}
}

func TestFetchTitleAPIFailureFolded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "nope"}`, http.StatusInternalServerError)
	})
	c, _ := newAPIClient(t, mux)

	title, err := c.FetchTitle(context.Background(), testIssue)
	if err != nil {
		t.Fatalf("API failures must not surface as errors, got %v", err)
	}
	if !strings.HasPrefix(title, "COULDN'T GET TITLE due to error ") {
		t.Errorf("title = %q", title)
	}
}

func TestFetchTitleBadURL(t *testing.T) {
	c := &Client{cfg: &config.Config{GithubMode: config.GithubModeMock}}
	if _, err := c.FetchTitle(context.Background(), "https://example.com/x"); err == nil {
		t.Error("expected an error for a non-issue URL")
	}
}

func TestFetchTitleMockMode(t *testing.T) {
	c := &Client{cfg: &config.Config{GithubMode: config.GithubModeMock}}
	title, err := c.FetchTitle(context.Background(), testIssue)
	if err != nil || title != "TITLE" {
		t.Errorf("mock FetchTitle = %q, %v", title, err)
	}
}
