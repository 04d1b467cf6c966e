package models

import (
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Status is the publication state of a Work. It's stored as an integer and
// exposed as a string.
type Status int

const (
	// StatusAny only appears in list filters and is never stored.
	StatusAny Status = iota
	StatusOngoing
	StatusEnded
)

var statusNames = map[Status]string{
	StatusAny:     "any",
	StatusOngoing: "ongoing",
	StatusEnded:   "ended",
}

// StatusNames returns the names of the statuses that can be stored on a Work.
func StatusNames() []string {
	return []string{statusNames[StatusOngoing], statusNames[StatusEnded]}
}

// ParseStatus converts an API name into a Status.
func ParseStatus(s string) (Status, bool) {
	for status, name := range statusNames {
		if name == s {
			return status, true
		}
	}
	return StatusAny, false
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.WithStack(err)
	}
	parsed, ok := ParseStatus(name)
	if !ok {
		return errors.Errorf("unknown status %q", name)
	}
	*s = parsed
	return nil
}
