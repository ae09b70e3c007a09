package walker

import (
	"errors"
	"fmt"
)

// State is where an entry is in its lifecycle.
type State int

const (
	Pending State = iota
	Navigating
	Extracting
	Recorded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Navigating:
		return "navigating"
	case Extracting:
		return "extracting"
	case Recorded:
		return "recorded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrEmptyResult means a walk finished without recording any entry.
var ErrEmptyResult = errors.New("walk recorded no entries")

// EntryError is a failure confined to one entry. State is the step that failed.
type EntryError struct {
	ID    string
	State State
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %s: %s: %v", e.ID, e.State, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }
