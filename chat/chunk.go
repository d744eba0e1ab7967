package chat

// SplitLine splits an outbound message into segments that each fit in one
// PRIVMSG to target. The per-segment budget accounts for the worst-case
// prefix the server prepends when relaying (nick!user@host), the "PRIVMSG
// <target> :" framing, and the CTCP ACTION wrapper for emotes. Splits never
// land inside a UTF-8 sequence. The result always has at least one segment,
// so an empty line still produces one (empty) message.
func SplitLine(target string, action bool, line string) []string {
	maxLen := 463 - 8 - len(target)
	if action {
		maxLen -= 9
	}

	var segments []string
	start := 0
	for {
		if len(line)-start <= maxLen {
			return append(segments, line[start:])
		}
		end := start + maxLen
		for line[end]&0xC0 == 0x80 {
			end--
		}
		segments = append(segments, line[start:end])
		start = end
	}
}
