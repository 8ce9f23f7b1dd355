package conversation

import (
	"sync"
	"time"
)

// State is the per-chat record of collected symptoms and dialogue position
type State struct {
	ChatID int64

	// SymptomCounts is a multiset; SymptomOrder keeps first-seen order
	// so the flattened list is stable.
	SymptomCounts map[string]int
	SymptomOrder  []string

	Details         map[string]map[string]string // symptom -> field -> value
	CurrentSymptom  string
	CurrentCategory string

	// LastScriptedMessageID is the bot message replaced by the next
	// scripted prompt. Zero means none.
	LastScriptedMessageID int

	UpdatedAt time.Time
}

func newState(chatID int64) *State {
	return &State{
		ChatID:        chatID,
		SymptomCounts: make(map[string]int),
		Details:       make(map[string]map[string]string),
		UpdatedAt:     time.Now(),
	}
}

// AddSymptom increments the count of a symptom
func (s *State) AddSymptom(name string) {
	if _, seen := s.SymptomCounts[name]; !seen {
		s.SymptomOrder = append(s.SymptomOrder, name)
	}
	s.SymptomCounts[name]++
}

// StartSymptom marks name as in progress and makes sure it has a details entry
func (s *State) StartSymptom(name string) {
	s.CurrentSymptom = name
	if s.Details[name] == nil {
		s.Details[name] = make(map[string]string)
	}
}

// SetDetail stores an answer, overwriting any previous one for the field
func (s *State) SetDetail(symptom, field, value string) {
	if s.Details[symptom] == nil {
		s.Details[symptom] = make(map[string]string)
	}
	s.Details[symptom][field] = value
}

// Symptoms flattens the multiset, repeating names by count
func (s State) Symptoms() []string {
	var out []string
	for _, name := range s.SymptomOrder {
		for i := 0; i < s.SymptomCounts[name]; i++ {
			out = append(out, name)
		}
	}
	return out
}

// TotalCount is the number of completed symptom passes
func (s State) TotalCount() int {
	total := 0
	for _, n := range s.SymptomCounts {
		total += n
	}
	return total
}

func (s *State) clone() State {
	c := *s
	c.SymptomCounts = make(map[string]int, len(s.SymptomCounts))
	for k, v := range s.SymptomCounts {
		c.SymptomCounts[k] = v
	}
	c.SymptomOrder = append([]string(nil), s.SymptomOrder...)
	c.Details = make(map[string]map[string]string, len(s.Details))
	for sym, fields := range s.Details {
		m := make(map[string]string, len(fields))
		for f, v := range fields {
			m[f] = v
		}
		c.Details[sym] = m
	}
	return c
}

// Manager tracks chat state per chat id
type Manager struct {
	mu     sync.Mutex
	states map[int64]*State
}

// NewManager creates a chat state manager
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*State),
	}
}

func (m *Manager) stateLocked(chatID int64) *State {
	state, exists := m.states[chatID]
	if !exists {
		state = newState(chatID)
		m.states[chatID] = state
	}
	return state
}

// Get returns a copy of the chat's state, creating it on first use
func (m *Manager) Get(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stateLocked(chatID).clone()
}

// Mutate applies fn to the chat's state under the lock and returns a copy
// of the result. fn must not call back into the manager.
func (m *Manager) Mutate(chatID int64, fn func(*State)) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.stateLocked(chatID)
	fn(state)
	state.UpdatedAt = time.Now()
	return state.clone()
}

// Clear wipes everything recorded for the chat
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, chatID)
}

// Len reports how many chats are tracked
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.states)
}
