package domain

// Status is what the user is currently focused on.
type Status string

const (
	StatusDeepWork Status = "Deep Work"
	StatusLearning Status = "Learning"
	StatusResting  Status = "Resting"
)

// Statuses lists the selectable statuses in display order.
var Statuses = []Status{StatusDeepWork, StatusLearning, StatusResting}

// ParseStatus maps a submitted value to a Status, falling back to Deep Work.
func ParseStatus(s string) Status {
	for _, st := range Statuses {
		if string(st) == s {
			return st
		}
	}
	return StatusDeepWork
}

func (s Status) Emoji() string {
	switch s {
	case StatusLearning:
		return "📚"
	case StatusResting:
		return "😌"
	default:
		return "🎯"
	}
}

// Color is the badge colour as a CSS hex value.
func (s Status) Color() string {
	switch s {
	case StatusDeepWork:
		return "#3b82f6"
	case StatusLearning:
		return "#10b981"
	case StatusResting:
		return "#f59e0b"
	default:
		return "#6b7280"
	}
}

// Profile represents user configurable sidebar options.
type Profile struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}
