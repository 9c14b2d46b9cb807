package session

import (
	"fmt"
	"strings"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
)

// Tab is the active view of the tool.
type Tab uint8

const (
	TakePhoto Tab = iota
	HistogramView
	SavePhoto
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TakePhoto, HistogramView, SavePhoto}

var tabNames = [...]string{"take-photo", "histogram", "save-photo"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return fmt.Sprintf("Tab(%d)", uint8(t))
}

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool { return int(t) < len(tabNames) }

// ParseTab accepts a tab name, case-insensitively.
func ParseTab(s string) (Tab, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range tabNames {
		if s == name {
			return Tab(i), nil
		}
	}
	return 0, apperrors.Newf(apperrors.InvalidArgument, "unknown tab %q", s)
}

func (t Tab) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, apperrors.Newf(apperrors.InvalidArgument, "invalid tab %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tab) UnmarshalText(b []byte) error {
	v, err := ParseTab(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
