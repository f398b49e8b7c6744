package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssignmentClass identifies an IEEE registration authority block size
type AssignmentClass string

const (
	ClassMAL AssignmentClass = "MA-L" // 24-bit prefix (OUI)
	ClassMAM AssignmentClass = "MA-M" // 28-bit prefix
	ClassMAS AssignmentClass = "MA-S" // 36-bit prefix
)

// AssignmentClasses lists every class in ingestion order
var AssignmentClasses = []AssignmentClass{ClassMAL, ClassMAM, ClassMAS}

// PrefixBits returns the number of registry-assigned leading bits
func (c AssignmentClass) PrefixBits() int {
	switch c {
	case ClassMAL:
		return 24
	case ClassMAM:
		return 28
	case ClassMAS:
		return 36
	}
	return 0
}

// HostBits returns the number of bits left to the assignee
func (c AssignmentClass) HostBits() int {
	if c.PrefixBits() == 0 {
		return 0
	}
	return 48 - c.PrefixBits()
}

// Width is end minus start for a block of this class
func (c AssignmentClass) Width() uint64 {
	return 1<<uint(c.HostBits()) - 1
}

// Valid reports whether c is one of the three known classes
func (c AssignmentClass) Valid() bool {
	return c.PrefixBits() != 0
}

// ParseAssignmentClass accepts "MA-L", "mal", "oui", "MA-M", "mam", "MA-S", "mas", "oui36"
func ParseAssignmentClass(s string) (AssignmentClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ma-l", "mal", "oui":
		return ClassMAL, nil
	case "ma-m", "mam", "oui28":
		return ClassMAM, nil
	case "ma-s", "mas", "oui36":
		return ClassMAS, nil
	}
	return "", fmt.Errorf("%w: unknown assignment class %q", ErrInvalidArgument, s)
}

// BlockFor computes the range covered by prefix within class c
func (c AssignmentClass) BlockFor(prefix uint64) (start, end MAC, err error) {
	if !c.Valid() {
		return 0, 0, fmt.Errorf("%w: unknown assignment class %q", ErrInvalidArgument, c)
	}
	if prefix>>uint(c.PrefixBits()) != 0 {
		return 0, 0, fmt.Errorf("%w: prefix %#x wider than %d bits", ErrInvalidArgument, prefix, c.PrefixBits())
	}
	s := prefix << uint(c.HostBits())
	return MAC(s), MAC(s + c.Width()), nil
}

// Organization is an assignee as listed by a registry.
// Identity is the (Name, Address) pair; the same company may appear
// under different spellings in different registries.
type Organization struct {
	ID      int64  `json:"-" yaml:"-"`
	Name    string `json:"org_name" yaml:"org_name"`
	Address string `json:"org_address" yaml:"org_address"`
}

// MacRange is an inclusive block of addresses assigned to an organization.
// Ranges from different classes may nest; that is expected.
type MacRange struct {
	Start        MAC          `json:"start"`
	End          MAC          `json:"end"`
	Organization Organization `json:"organization"`
}

// Contains reports whether m falls inside the range
func (r MacRange) Contains(m MAC) bool {
	return r.Start <= m && m <= r.End
}

// Size is the number of addresses in the range
func (r MacRange) Size() uint64 {
	return uint64(r.End-r.Start) + 1
}

// Validate checks the range invariants
func (r MacRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: range bounds exceed 48 bits", ErrInvalidArgument)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: range start %s after end %s", ErrInvalidArgument, r.Start, r.End)
	}
	if strings.TrimSpace(r.Organization.Name) == "" {
		return fmt.Errorf("%w: range without organization name", ErrInvalidArgument)
	}
	return nil
}

// Assignment is one accepted registry row
type Assignment struct {
	Class AssignmentClass
	Range MacRange
}

// Feed records the last ingestion of one registry list
type Feed struct {
	Class      AssignmentClass `json:"class"`
	Digest     string          `json:"digest,omitempty"`
	Rows       int             `json:"rows"`
	IngestedAt time.Time       `json:"ingested_at"`
}
