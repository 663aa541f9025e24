package domain

import (
	"encoding/json"
	"errors"
)

// ActionType is the operation applied to a selected duplicate
type ActionType string

const (
	// ActionDelete removes the file permanently
	ActionDelete ActionType = "delete"
	// ActionRelocate moves the file into a quarantine folder
	ActionRelocate ActionType = "relocate"
)

// IsValid checks if the action type is a known value
func (a ActionType) IsValid() bool {
	switch a {
	case ActionDelete, ActionRelocate:
		return true
	}
	return false
}

// Outcome is the result of one delete or relocate attempt
type Outcome struct {
	Path        string
	Action      ActionType
	Destination string // Final path for relocations
	DryRun      bool
	Err         error
}

// OK reports whether the action succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

type outcomeJSON struct {
	Path        string     `json:"path"`
	Action      ActionType `json:"action"`
	Destination string     `json:"destination,omitempty"`
	DryRun      bool       `json:"dry_run,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// MarshalJSON encodes the error as its message
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Path:        o.Path,
		Action:      o.Action,
		Destination: o.Destination,
		DryRun:      o.DryRun,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the error message as an opaque error
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*o = Outcome{
		Path:        in.Path,
		Action:      in.Action,
		Destination: in.Destination,
		DryRun:      in.DryRun,
	}
	if in.Error != "" {
		o.Err = errors.New(in.Error)
	}
	return nil
}
