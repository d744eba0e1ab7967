package minutes

import (
	"regexp"
	"strings"
)

// issueTokenRE finds "#1"-style tokens preceded by whitespace, which GitHub
// would otherwise autolink to unrelated issues when they appear in the log.
var issueTokenRE = regexp.MustCompile(`([[:space:]])#([0-9])`)

// CommentBody renders the topic as the Markdown comment posted to GitHub.
// The topic title and resolutions are wrapped in code spans; unless the topic
// is resolutions-only, the full IRC log follows in a collapsed details block,
// HTML-escaped line by line.
func (t *Topic) CommentBody() string {
	var b strings.Builder

	b.WriteString("The ")
	b.WriteString(t.Group)
	b.WriteString(" just discussed ")
	if t.Title == "" {
		b.WriteString("this issue")
	} else {
		b.WriteString(EscapeAsCodeSpan(t.Title))
	}
	if len(t.Resolutions) == 0 {
		b.WriteString(".\n")
	} else {
		b.WriteString(", and agreed to the following:\n\n")
		for _, resolution := range t.Resolutions {
			b.WriteString("* ")
			b.WriteString(EscapeAsCodeSpan(resolution))
			b.WriteString("\n")
		}
	}

	if !t.ResolutionsOnly {
		b.WriteString("\n<details><summary>The full IRC log of that discussion</summary>\n")
		for _, line := range t.Lines {
			b.WriteString(escapeForHTMLBlock(line.String()))
			b.WriteString("<br>\n")
		}
		b.WriteString("</details>\n")
	}
	return b.String()
}

// EscapeAsCodeSpan wraps s in a Markdown code span, per
// https://github.github.com/gfm/#code-spans: the delimiter is one backtick
// longer than the longest backtick run in s, and a space is inserted inside
// the delimiter when s itself starts or ends with a backtick.
func EscapeAsCodeSpan(s string) string {
	cur, max := 0, 0
	for _, r := range s {
		if r == '`' {
			cur++
			if cur > max {
				max = cur
			}
		} else {
			cur = 0
		}
	}
	ticks := strings.Repeat("`", max+1)

	spaceFirst := ""
	if strings.HasPrefix(s, "`") {
		spaceFirst = " "
	}
	spaceLast := ""
	if strings.HasSuffix(s, "`") {
		spaceLast = " "
	}
	return ticks + spaceFirst + s + spaceLast + ticks
}

// escapeForHTMLBlock prepares one log line for the details block. A zero
// width no-break space (U+FEFF) is inserted between whitespace-preceded "#"
// and a following digit so GitHub doesn't linkify "#1" into an issue link;
// this runs before entity escaping in case the escaping ever produces decimal
// character references.
func escapeForHTMLBlock(s string) string {
	s = issueTokenRE.ReplaceAllString(s, "${1}#\ufeff${2}")
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return s
}
