// Package minutes implements the per-channel minuting state machine: it
// classifies chat lines, buffers discussion under the current topic, tracks
// the associated GitHub issue, and renders the Markdown comment posted when a
// topic ends.
package minutes

import (
	"fmt"
	"strings"
)

// Line is one chat line as seen in a channel, after hidden-suffix filtering.
type Line struct {
	Source   string
	IsAction bool
	Message  string
}

// String renders the line the way it appears in the posted IRC log.
func (l Line) String() string {
	if l.IsAction {
		return fmt.Sprintf("* %s %s", l.Source, l.Message)
	}
	return fmt.Sprintf("<%s> %s", l.Source, l.Message)
}

// LineClass is the structural classification of a channel line, evaluated
// once per line before the state machine applies it.
type LineClass int

const (
	// ClassPlain is any line with no special meaning of its own.
	ClassPlain LineClass = iota
	// ClassTopicStart and ClassSubtopicStart begin a new discussion unit;
	// subtopics are treated identically to topics.
	ClassTopicStart
	ClassSubtopicStart
	// ClassMeetingEnd is trackbot/Zakim announcing the end of the meeting.
	ClassMeetingEnd
	// ClassAttendance is a "present+" roll-call line, dropped entirely.
	ClassAttendance
	// ClassResolution is a RESOLUTION/RESOLVED line; it is recorded and also
	// marks the issue for Agenda+ label removal.
	ClassResolution
	// ClassSummary is a SUMMARY or ACTION line; recorded without touching
	// labels.
	ClassSummary
)

// Classified is the result of classifying one line. Argument carries the
// topic title for ClassTopicStart/ClassSubtopicStart.
type Classified struct {
	Class    LineClass
	Argument string
}

// hiddenMarker removes anything after "[off]" so it is never logged, matching
// the convention of the other W3C logging bots.
const hiddenMarker = "[off]"

// FilterHidden replaces everything from the first "[off]" onward with
// "[hidden]". It is applied before any other processing of the line.
func FilterHidden(message string) string {
	if i := strings.Index(message, hiddenMarker); i >= 0 {
		return message[:i] + "[hidden]"
	}
	return message
}

// IsPresentPlus reports whether the line is a roll-call marker: exactly
// "present+" or beginning with "present+ " (case-insensitive).
func IsPresentPlus(message string) bool {
	const marker = "present+"
	switch {
	case len(message) < len(marker):
		return false
	case len(message) == len(marker):
		return strings.EqualFold(message, marker)
	default:
		return strings.EqualFold(message[:len(marker)+1], marker+" ")
	}
}

// Classify determines the structural class of a line. GitHub URL directives
// are not part of structural classification; they are handled by
// ExtractGithubURL because their interpretation depends on channel state.
func Classify(l Line) Classified {
	if IsPresentPlus(l.Message) {
		return Classified{Class: ClassAttendance}
	}
	if !l.IsAction {
		if title, ok := StripCIPrefix(l.Message, "topic:"); ok {
			return Classified{Class: ClassTopicStart, Argument: title}
		}
		if title, ok := StripCIPrefix(l.Message, "subtopic:"); ok {
			return Classified{Class: ClassSubtopicStart, Argument: title}
		}
	}
	if isMeetingEnd(l) {
		return Classified{Class: ClassMeetingEnd}
	}
	if !l.IsAction {
		if strings.HasPrefix(l.Message, "RESOLUTION") || strings.HasPrefix(l.Message, "RESOLVED") {
			return Classified{Class: ClassResolution}
		}
		if strings.HasPrefix(l.Message, "SUMMARY") || strings.HasPrefix(l.Message, "ACTION") {
			return Classified{Class: ClassSummary}
		}
	}
	return Classified{Class: ClassPlain}
}

// isMeetingEnd recognizes the two meeting-closing announcements used on W3C
// channels: trackbot's action line and Zakim's attendee summary.
func isMeetingEnd(l Line) bool {
	if l.IsAction {
		return l.Source == "trackbot" && l.Message == "is ending a teleconference."
	}
	return l.Source == "Zakim" && strings.HasPrefix(l.Message, "As of this point the attendees have been")
}

// ciHasPrefix is a case-insensitive strings.HasPrefix restricted to ASCII
// prefixes, which is all the directives use.
func ciHasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// StripCIPrefix removes a case-insensitive prefix and any whitespace after
// it, reporting whether the prefix was present.
func StripCIPrefix(s, prefix string) (string, bool) {
	if !ciHasPrefix(s, prefix) {
		return "", false
	}
	return strings.TrimLeft(s[len(prefix):], " \t"), true
}

// stripOneCIPrefix tries each prefix in order and strips the first match.
func stripOneCIPrefix(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := StripCIPrefix(s, p); ok {
			return rest, true
		}
	}
	return "", false
}
