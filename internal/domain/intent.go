package domain

// IntentType classifies what the cook wants to do in plain cook mode.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentDone               // mark step N completed
	IntentUndo               // mark step N pending again
	IntentBoard              // show every step with its state
	IntentReady              // list steps that can be performed now
	IntentDiagram            // print the mermaid diagram
	IntentStatus
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentDone:
		return "done"
	case IntentUndo:
		return "undo"
	case IntentBoard:
		return "board"
	case IntentReady:
		return "ready"
	case IntentDiagram:
		return "diagram"
	case IntentStatus:
		return "status"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed cook action.
type Intent struct {
	Type IntentType
	Step int    // 1-based step number for done/undo, 0 otherwise
	Raw  string // trimmed input
}
