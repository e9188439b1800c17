package usecase

import (
	"regexp"
	"strings"
	"sync"
)

const defaultContextWindow = 5

// anaphoricCues is the fixed phrase list that marks a follow-up referring to
// the last discussed item. Cues match on word boundaries so "about it" does
// not fire inside "about iteration".
var anaphoricCues = []string{
	"more info",
	"more detail",
	"more details",
	"tell me more",
	"that task",
	"that item",
	"this task",
	"its subitems",
	"its subtasks",
	"about it",
	"give me more",
}

var anaphoricCueRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(anaphoricCues))
	for _, cue := range anaphoricCues {
		res = append(res, regexp.MustCompile(`\b`+regexp.QuoteMeta(cue)+`\b`))
	}
	return res
}()

// ContextTurn is one remembered (question, resolved item) pair.
type ContextTurn struct {
	Question string
	ItemID   string
}

// Tracker holds the short conversational memory for a single conversation:
// a FIFO window of past turns and the identity of the last item discussed.
type Tracker struct {
	mu         sync.Mutex
	window     int
	turns      []ContextTurn
	lastItemID string
}

func NewTracker(window int) *Tracker {
	if window <= 0 {
		window = defaultContextWindow
	}
	return &Tracker{window: window}
}

// Resolve reports whether the query is an anaphoric follow-up that should be
// rewritten to a detail lookup of the last discussed item. With no cue or no
// prior item the query passes through untouched.
func (t *Tracker) Resolve(query string) (string, bool) {
	lowered := strings.ToLower(query)
	cueHit := false
	for _, cue := range anaphoricCueRes {
		if cue.MatchString(lowered) {
			cueHit = true
			break
		}
	}
	if !cueHit {
		return "", false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastItemID == "" {
		return "", false
	}
	return t.lastItemID, true
}

// Update appends a turn, evicting the oldest once the window is full. An
// empty itemID keeps the previous referent.
func (t *Tracker) Update(question, itemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns, ContextTurn{Question: question, ItemID: itemID})
	if len(t.turns) > t.window {
		t.turns = t.turns[len(t.turns)-t.window:]
	}
	if itemID != "" {
		t.lastItemID = itemID
	}
}

func (t *Tracker) Turns() []ContextTurn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ContextTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Tracker) LastItemID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastItemID
}

// TrackerRegistry hands out one tracker per conversation. Trackers are never
// shared across conversations.
type TrackerRegistry struct {
	mu       sync.Mutex
	window   int
	trackers map[string]*Tracker
}

func NewTrackerRegistry(window int) *TrackerRegistry {
	return &TrackerRegistry{
		window:   window,
		trackers: make(map[string]*Tracker),
	}
}

func (r *TrackerRegistry) Get(conversationID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	tracker, ok := r.trackers[conversationID]
	if !ok {
		tracker = NewTracker(r.window)
		r.trackers[conversationID] = tracker
	}
	return tracker
}

// Drop discards a conversation's memory at conversation end.
func (r *TrackerRegistry) Drop(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, conversationID)
}
