package memoryx

import (
	"slices"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
)

// Log is the retained memory of one conversation session. Turns are kept
// as user/agent pairs, oldest first, and the total text length never
// exceeds the budget after a mutation unless the log is empty.
//
// A Log is not safe for concurrent use; Sessions serialises access per key.
type Log struct {
	maxLength int
	turns     []Turn
	length    int
}

// NewLog creates an empty log; maxLength <= 0 uses DefaultMaxLength
func NewLog(maxLength int) *Log {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Log{maxLength: maxLength}
}

// RestoreLog rebuilds a log from stored turns. Only well formed
// user-then-agent pairs are taken, and the budget is enforced.
func RestoreLog(maxLength int, turns []Turn) *Log {
	l := NewLog(maxLength)
	for i := 0; i+1 < len(turns); i += 2 {
		if turns[i].Role() != RoleUser || turns[i+1].Role() != RoleAgent {
			continue
		}
		l.appendPair(turns[i], turns[i+1])
	}
	l.Clip()
	return l
}

func (l *Log) MaxLength() int { return l.maxLength }

// Len is the number of turns (always even)
func (l *Log) Len() int { return len(l.turns) }

// Length is the total character length of all turn texts
func (l *Log) Length() int { return l.length }

// Turns returns a copy of the retained turns
func (l *Log) Turns() []Turn {
	return slices.Clone(l.turns)
}

// Pairs returns the retained turns grouped as exchanges
func (l *Log) Pairs() []Pair {
	pairs := make([]Pair, 0, len(l.turns)/2)
	for i := 0; i+1 < len(l.turns); i += 2 {
		pairs = append(pairs, Pair{User: l.turns[i].Text(), Agent: l.turns[i+1].Text()})
	}
	return pairs
}

// AppendRecent appends the newest k exchanges from parsed transcript
// sequences, oldest of them first, then enforces the budget. Older
// exchanges are skipped. It returns the exchanges that were appended.
func (l *Log) AppendRecent(userTexts, agentTexts []string, k int) []Pair {
	if k <= 0 {
		return nil
	}

	n := min(len(userTexts), len(agentTexts))
	start := max(n-k, 0)

	var appended []Pair
	for i := start; i < n; i++ {
		l.appendPair(NewTurn(RoleUser, userTexts[i]), NewTurn(RoleAgent, agentTexts[i]))
		appended = append(appended, Pair{User: userTexts[i], Agent: agentTexts[i]})
	}
	l.Clip()

	return appended
}

// AddExchange appends a single exchange and enforces the budget
func (l *Log) AddExchange(user, agent string) error {
	l.appendPair(NewTurn(RoleUser, user), NewTurn(RoleAgent, agent))
	l.Clip()
	return nil
}

// Clip evicts the oldest pair while the log is over budget and returns
// the number of pairs evicted. An empty log always stops the loop, so a
// budget smaller than a single pair ends with an empty log.
func (l *Log) Clip() int {
	evicted := 0
	for len(l.turns) > 0 && l.length > l.maxLength {
		n := min(2, len(l.turns))
		for _, t := range l.turns[:n] {
			l.length -= t.Size()
		}
		l.turns = slices.Delete(l.turns, 0, n)
		evicted++
	}
	if len(l.turns) == 0 {
		l.length = 0
	}
	return evicted
}

// Messages implements Memory
func (l *Log) Messages() ([]llm.Message, error) {
	msgs := make([]llm.Message, 0, len(l.turns))
	for _, t := range l.turns {
		msgs = append(msgs, t.Message())
	}
	return msgs, nil
}

// Clear implements Memory
func (l *Log) Clear() error {
	l.turns = nil
	l.length = 0
	return nil
}

func (l *Log) appendPair(user, agent Turn) {
	l.turns = append(l.turns, user, agent)
	l.length += user.Size() + agent.Size()
}
