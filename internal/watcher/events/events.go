package events

import (
	"fmt"
	"time"
)

type (
	// ChangeEvent is a filesystem change under a watch root.
	//
	// A ChangeEvent of kind Renamed with an empty OldPath is the
	// source half of a rename as reported by a backend, Path is the old path.
	// EventQueue pairs it with the following Added event, or turns it into Removed.
	ChangeEvent struct {
		Root    string    // the watch root Path belongs to
		Path    string    // absolute path
		OldPath string    // absolute path before rename, Renamed only
		Kind    Kind      // kind of change
		IsDir   bool      // whether Path is a directory
		Time    time.Time // when the change was observed
	}
	Kind uint8
)

const (
	Added Kind = iota + 1
	Modified
	Removed
	Renamed
)

var kindNames = map[Kind]string{
	Added:    "added",
	Modified: "modified",
	Removed:  "removed",
	Renamed:  "renamed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid kind %q", b)
}

// IsRenameSource reports whether e is an unpaired rename source.
func (e ChangeEvent) IsRenameSource() bool {
	return e.Kind == Renamed && e.OldPath == ""
}

func (e ChangeEvent) String() string {
	if e.Kind == Renamed && e.OldPath != "" {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.OldPath, e.Path)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}
