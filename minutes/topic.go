package minutes

// Topic buffers one discussion unit: the lines minuted under it, the
// resolutions reached, and the GitHub issue the discussion should be posted
// to. It is created on topic start and handed off (or discarded) on topic
// end.
type Topic struct {
	// Title of the discussion; empty means the comment reads "this issue".
	Title string
	// Group is the working-group name, snapshotted at creation.
	Group string
	// GithubURL is the associated issue/PR URL, or empty when unset.
	GithubURL string
	// Lines is the buffered channel log, in order.
	Lines []Line
	// Resolutions collects RESOLUTION/RESOLVED/SUMMARY/ACTION lines.
	Resolutions []string
	// RemoveFromAgenda is set once a RESOLUTION/RESOLVED line is seen; the
	// comment task then strips Agenda+ labels from the issue.
	RemoveFromAgenda bool
	// ResolutionsOnly is the channel's publish_resolutions_only setting,
	// snapshotted at creation.
	ResolutionsOnly bool
}

// NewTopic creates an empty topic snapshotting the channel settings.
func NewTopic(title, group string, resolutionsOnly bool) *Topic {
	return &Topic{
		Title:           title,
		Group:           group,
		ResolutionsOnly: resolutionsOnly,
	}
}

// ShouldComment reports whether ending this topic should post a comment: a
// URL must be set, and in resolutions-only mode at least one resolution must
// have been recorded.
func (t *Topic) ShouldComment() bool {
	return t.GithubURL != "" && (len(t.Resolutions) > 0 || !t.ResolutionsOnly)
}
