package prefs

import (
	"sync"

	"github.com/fastfingers/race-backend/internal/typing"
)

type Mode string

const (
	ModeWords Mode = "words"
	ModeTime  Mode = "time"
	ModeQuote Mode = "quote"
)

// Preferences are the per-user typing settings. Only the policy flags feed
// the race core; the rest is carried for the preferences endpoint.
type Preferences struct {
	CurrentMode        Mode   `json:"currentMode"`
	WordsModeLength    int    `json:"wordsModeLength"`
	TimeModeDuration   int    `json:"timeModeDuration"`
	Language           string `json:"language"`
	QuoteModeMinLength int    `json:"quoteModeMinLength"`
	QuoteModeMaxLength *int   `json:"quoteModeMaxLength"`
	MaxCharsInLine     int    `json:"maxCharsInLine"`
	ShowAllLines       bool   `json:"showAllLines"`
	AllowSkippingWords bool   `json:"allowSkippingWords"`
	AllowBackpedal     bool   `json:"allowBackpedal"`
}

func Default() Preferences {
	return Preferences{
		CurrentMode:      ModeWords,
		WordsModeLength:  25,
		TimeModeDuration: 30,
		Language:         "english",
		MaxCharsInLine:   60,
		// Solo practice defaults: skipping allowed, backpedal allowed.
		// Races override both regardless of preference.
		AllowSkippingWords: true,
		AllowBackpedal:     true,
	}
}

// Policy extracts the flags the input validator is constructed with.
func (p Preferences) Policy() typing.Policy {
	return typing.Policy{
		AllowSkipping:  p.AllowSkippingWords,
		AllowBackpedal: p.AllowBackpedal,
	}
}

// Store keeps preferences per username, in memory only. Result and
// preference persistence across restarts is explicitly not this server's
// job; this is the narrow read-once collaborator the typing core consumes.
type Store struct {
	mu    sync.RWMutex
	users map[string]Preferences
}

func NewStore() *Store {
	return &Store{users: make(map[string]Preferences)}
}

// Get returns the stored preferences for a user, or the defaults.
func (s *Store) Get(username string) Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.users[username]; ok {
		return p
	}
	return Default()
}

func (s *Store) Set(username string, p Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = p
}
