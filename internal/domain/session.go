package domain

import "time"

// Completion is the cook's progress on a single step.
//
// The source data this tool grew out of tracked "steps needing completion"
// as booleans where true meant not done yet. That polarity only exists at
// the edges now, see CompletionFromNeeds and CompletionVector.Needs.
type Completion int

const (
	Pending Completion = iota
	Completed
)

// String returns a human-readable completion state.
func (c Completion) String() string {
	switch c {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// CompletionVector holds one Completion per recipe step.
type CompletionVector []Completion

// NewCompletionVector returns n pending steps.
func NewCompletionVector(n int) CompletionVector {
	return make(CompletionVector, n)
}

// CompletionFromNeeds converts a needs-completion vector (true = still to do).
func CompletionFromNeeds(needs []bool) CompletionVector {
	v := make(CompletionVector, len(needs))
	for i, need := range needs {
		if !need {
			v[i] = Completed
		}
	}
	return v
}

// Needs returns the vector in needs-completion form (true = still to do).
func (v CompletionVector) Needs() []bool {
	out := make([]bool, len(v))
	for i, c := range v {
		out[i] = c != Completed
	}
	return out
}

// IsPending reports whether step i still needs to be performed.
func (v CompletionVector) IsPending(i int) bool { return v[i] != Completed }

// AllCompleted reports whether every step is done.
func (v CompletionVector) AllCompleted() bool {
	for _, c := range v {
		if c != Completed {
			return false
		}
	}
	return true
}

// CompletedCount returns the number of completed steps.
func (v CompletionVector) CompletedCount() int {
	n := 0
	for _, c := range v {
		if c == Completed {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (v CompletionVector) Clone() CompletionVector {
	out := make(CompletionVector, len(v))
	copy(out, v)
	return out
}

// Session is a cook working through one recipe.
type Session struct {
	ID            string
	RecipeID      string
	RecipeName    string
	RecipeVersion int
	Servings      int
	Completion    CompletionVector
	CompletedAt   map[int]time.Time
	Status        SessionStatus
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// SessionStatus tracks the lifecycle of a cooking session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionCompleted
	SessionAbandoned
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionCompleted:
		return "completed"
	case SessionAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ParseSessionStatus is the inverse of SessionStatus.String.
func ParseSessionStatus(s string) SessionStatus {
	switch s {
	case "completed":
		return SessionCompleted
	case "abandoned":
		return SessionAbandoned
	default:
		return SessionActive
	}
}
