package core

import "strings"

// Status is the record status bitmask exposed by the host repository.
type Status int

const (
	StatusPublished Status = 1 << iota
	StatusUnpublished
	StatusHidden
	StatusLocked
	StatusSystem
	StatusSystemID
)

var statusNames = []struct {
	flag  Status
	label string
}{
	{StatusPublished, "published"},
	{StatusUnpublished, "unpublished"},
	{StatusHidden, "hidden"},
	{StatusLocked, "locked"},
	{StatusSystem, "system"},
	{StatusSystemID, "systemID"},
}

// Labels decodes the bitmask into human labels, in declaration order.
// Returns an empty slice when no flags are set.
func (s Status) Labels() []string {
	labels := []string{}
	for _, n := range statusNames {
		if s&n.flag != 0 {
			labels = append(labels, n.label)
		}
	}
	return labels
}

// String joins the decoded labels with ", ". Empty string when no flags
// are set.
func (s Status) String() string {
	return strings.Join(s.Labels(), ", ")
}
