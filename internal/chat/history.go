package chat

import (
	"strings"
	"sync"
)

// HistoryLimit bounds each per-user sequence; the oldest entry is evicted
// first.
const HistoryLimit = 10

// recallPhrases are turns that ask for the history itself; they are never
// recorded as questions, so a recall request cannot appear in its own output.
var recallPhrases = map[string]struct{}{
	"what were my previous questions?": {},
	"what did i ask before?":           {},
}

// History keeps the bounded per-user question and answer sequences. It is
// process-lifetime, in-memory state; nothing is persisted across restarts.
type History struct {
	mu        sync.Mutex
	questions map[string][]string
	answers   map[string][]string
}

func NewHistory() *History {
	return &History{
		questions: make(map[string][]string),
		answers:   make(map[string][]string),
	}
}

// AddQuestion records a user turn unless it is a reserved recall phrasing.
func (h *History) AddQuestion(userID, question string) {
	if _, reserved := recallPhrases[strings.ToLower(strings.TrimSpace(question))]; reserved {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.questions[userID] = push(h.questions[userID], question)
}

// AddAnswer records the reply given to a user turn.
func (h *History) AddAnswer(userID, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answers[userID] = push(h.answers[userID], answer)
}

// Questions returns a copy of the retained questions, oldest first.
func (h *History) Questions(userID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.questions[userID]...)
}

// Answers returns a copy of the retained answers, oldest first.
func (h *History) Answers(userID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.answers[userID]...)
}

func push(entries []string, entry string) []string {
	entries = append(entries, entry)
	if len(entries) > HistoryLimit {
		entries = entries[len(entries)-HistoryLimit:]
	}
	return entries
}
