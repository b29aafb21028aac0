package domain

import "time"

// FlashLevel controls how a one-shot message is styled.
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

// Flash is a message shown on the next page render only.
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// Session is all dashboard state belonging to one browser session. Celebrate
// is set when the timer expires and consumed by the next render.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Profile   Profile    `json:"profile"`
	Timer     TimerState `json:"timer"`
	Checklist Checklist  `json:"checklist"`
	City      string     `json:"city,omitempty"`
	Log       string     `json:"log,omitempty"`
	Quote     *Quote     `json:"quote,omitempty"`
	Flashes   []Flash    `json:"flashes,omitempty"`
	Celebrate bool       `json:"celebrate,omitempty"`
}

// NewSession builds a session with default profile and timer around the
// tasks loaded from storage.
func NewSession(id string, tasks []Task, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		Profile:   Profile{Status: StatusDeepWork},
		Timer:     NewTimer(),
		Checklist: NewChecklist(tasks),
	}
}

func (s *Session) AddFlash(level FlashLevel, msg string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: msg})
}

// TakeFlashes returns pending flashes and clears them.
func (s *Session) TakeFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}
