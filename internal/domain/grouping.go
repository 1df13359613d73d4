package domain

import (
	"fmt"
	"strings"
)

// MetadataField is the reserved column that carries group metadata in engine
// output rows. The prefix keeps it clear of user column names.
const MetadataField = "__duckgroup_metadata"

// GroupIDKey is the key under which a record's group id is folded into its
// metadata map after extraction.
const GroupIDKey = "group_id"

// GroupMode selects the bucketing strategy.
type GroupMode string

// GroupModeDistinct and friends are the supported bucketing strategies.
const (
	GroupModeDistinct   GroupMode = "distinct"
	GroupModeMagnitude  GroupMode = "magnitude"
	GroupModePercentile GroupMode = "percentile"
)

// GroupModes lists every valid mode in a stable order.
var GroupModes = []GroupMode{GroupModeDistinct, GroupModeMagnitude, GroupModePercentile}

// Valid reports whether m is one of the supported modes.
func (m GroupMode) Valid() bool {
	switch m {
	case GroupModeDistinct, GroupModeMagnitude, GroupModePercentile:
		return true
	default:
		return false
	}
}

// ParseGroupMode converts untyped input into a GroupMode.
func ParseGroupMode(s string) (GroupMode, error) {
	m := GroupMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidGroupMode("mode %q is invalid. valid modes are: %s", s, validModesList())
	}
	return m, nil
}

// UnmarshalText makes invalid modes unrepresentable when decoding JSON or YAML.
func (m *GroupMode) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func validModesList() string {
	quoted := make([]string, len(GroupModes))
	for i, m := range GroupModes {
		quoted[i] = fmt.Sprintf("'%s'", m)
	}
	return strings.Join(quoted, ", ")
}

// GroupMetadata describes one group. Every engine row carries a copy of its
// group's metadata; extraction reduces the copies to one per group.
//
// Value snapshots and bounds are keyed by grouping column name. The bound
// fields are nil unless a range-based strategy populated them.
type GroupMetadata struct {
	GroupID       int64          `json:"group_id"`
	Count         int64          `json:"count"`
	FirstValue    map[string]any `json:"first_value"`
	LastValue     map[string]any `json:"last_value"`
	LessThanEq    map[string]any `json:"less_than_eq_value"`
	GreaterThanEq map[string]any `json:"greater_than_eq_value"`
	LessThan      map[string]any `json:"less_than_value"`
	GreaterThan   map[string]any `json:"greater_than_value"`
}

// IsZero reports whether m carries no information at all.
func (m *GroupMetadata) IsZero() bool {
	return m == nil || (m.GroupID == 0 && m.Count == 0 &&
		m.FirstValue == nil && m.LastValue == nil &&
		m.LessThanEq == nil && m.GreaterThanEq == nil &&
		m.LessThan == nil && m.GreaterThan == nil)
}

// Record is one result row: column data plus row-level metadata.
type Record struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}
