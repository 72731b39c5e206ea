package models

import "time"

// HistoryKind classifies a change log entry.
type HistoryKind string

const (
	HistoryNote     HistoryKind = "note"
	HistoryRename   HistoryKind = "rename"
	HistoryDelete   HistoryKind = "delete"
	HistorySplit    HistoryKind = "split"
	HistoryRelation HistoryKind = "relation"
)

// ValidHistoryKinds is the set of all valid history kinds.
var ValidHistoryKinds = []HistoryKind{
	HistoryNote,
	HistoryRename,
	HistoryDelete,
	HistorySplit,
	HistoryRelation,
}

// IsValid returns true if the history kind is recognized.
func (hk HistoryKind) IsValid() bool {
	for _, v := range ValidHistoryKinds {
		if hk == v {
			return true
		}
	}
	return false
}

// HistoryEntry is one line of the append-only change log.
type HistoryEntry struct {
	ID     string      `json:"id" yaml:"id"`
	Kind   HistoryKind `json:"kind" yaml:"kind"`
	Entity string      `json:"entity" yaml:"entity"`
	Note   string      `json:"note" yaml:"note"`
	At     time.Time   `json:"at" yaml:"at"`
}
