package domain

import "time"

// TurnRecord is one generated utterance. Records are never modified after
// they are appended to a Transcript.
type TurnRecord struct {
	Speaker   string
	Text      string
	CreatedAt time.Time
}

// Transcript is the append-only, ordered dialogue of a session.
type Transcript struct {
	turns []TurnRecord
}

// NewTranscript returns a transcript holding a copy of turns, in order.
func NewTranscript(turns ...TurnRecord) Transcript {
	return Transcript{turns: append([]TurnRecord(nil), turns...)}
}

// Append adds a turn at the end.
func (t *Transcript) Append(turn TurnRecord) {
	t.turns = append(t.turns, turn)
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of all turns in dialogue order.
func (t Transcript) Turns() []TurnRecord {
	return append([]TurnRecord(nil), t.turns...)
}

// Last returns a copy of at most the n most recent turns, oldest first.
func (t Transcript) Last(n int) []TurnRecord {
	if n <= 0 || len(t.turns) == 0 {
		return nil
	}
	start := 0
	if len(t.turns) > n {
		start = len(t.turns) - n
	}
	return append([]TurnRecord(nil), t.turns[start:]...)
}
