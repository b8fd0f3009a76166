package memoryx

import (
	"strings"
	"unicode/utf8"
)

type scanState int

const (
	seekingUserText   scanState = iota // inside a segment, no agent label seen yet
	seekingAgentReply                  // one agent label seen, collecting the reply
	malformedSegment                   // a second agent label; the segment is dropped
)

// ParseTranscript splits a labelled transcript into user messages and the
// agent replies to them. A segment runs from one user label to the next;
// it yields a turn pair only when it contains exactly one agent label.
// Incomplete or malformed segments are dropped, so the two slices always
// have the same length. Empty input or an empty label yields no pairs.
func ParseTranscript(raw string, labels Labels) (userTexts, agentTexts []string) {
	if raw == "" || labels.User == "" || labels.Agent == "" {
		return nil, nil
	}

	state := seekingUserText
	segStart, userEnd, replyStart := 0, 0, 0

	flush := func(end int) {
		if state != seekingAgentReply {
			return
		}
		userTexts = append(userTexts, strings.TrimSpace(raw[segStart:userEnd]))
		agentTexts = append(agentTexts, strings.TrimSpace(raw[replyStart:end]))
	}

	pos := 0
	for pos <= len(raw) {
		u := indexFrom(raw, labels.User, pos)
		a := indexFrom(raw, labels.Agent, pos)
		if u < 0 && a < 0 {
			break
		}

		// A user label wins over an agent label it overlaps.
		if u >= 0 && (a < 0 || u < a+len(labels.Agent)) {
			flush(u)
			state = seekingUserText
			segStart = u + len(labels.User)
			pos = segStart
			continue
		}

		switch state {
		case seekingUserText:
			state = seekingAgentReply
			userEnd = a
			replyStart = a + len(labels.Agent)
		case seekingAgentReply:
			state = malformedSegment
		}
		pos = a + len(labels.Agent)
	}
	flush(len(raw))

	return userTexts, agentTexts
}

// ParsePairs is ParseTranscript zipped into pairs
func ParsePairs(raw string, labels Labels) []Pair {
	users, agents := ParseTranscript(raw, labels)
	return zip(users, agents)
}

// ClipTranscript drops characters from the start of history until prompt
// and history together fit in maxLength characters.
func ClipTranscript(history, prompt string, maxLength int) string {
	total := utf8.RuneCountInString(prompt) + utf8.RuneCountInString(history)
	if total <= maxLength {
		return history
	}

	remove := total - maxLength
	runes := []rune(history)
	if remove >= len(runes) {
		return ""
	}
	return string(runes[remove:])
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return from + i
}

func zip(users, agents []string) []Pair {
	n := min(len(users), len(agents))
	if n == 0 {
		return nil
	}
	pairs := make([]Pair, n)
	for i := range n {
		pairs[i] = Pair{User: users[i], Agent: agents[i]}
	}
	return pairs
}
