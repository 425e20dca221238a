package domain

import "strings"

// Status is the lifecycle state of a scenario and the derived state of a use case.
type Status string

const (
	StatusPlanned     Status = "planned"
	StatusInProgress  Status = "in_progress"
	StatusImplemented Status = "implemented"
	StatusTested      Status = "tested"
	StatusDeployed    Status = "deployed"
	StatusDeprecated  Status = "deprecated"
)

// statusRanks orders the non-terminal statuses. Deprecated has no rank.
var statusRanks = map[Status]int{
	StatusPlanned:     0,
	StatusInProgress:  1,
	StatusImplemented: 2,
	StatusTested:      3,
	StatusDeployed:    4,
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{
		StatusPlanned,
		StatusInProgress,
		StatusImplemented,
		StatusTested,
		StatusDeployed,
		StatusDeprecated,
	}
}

// ParseStatus normalizes user or file input into a Status.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	status := Status(normalized)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	if s == StatusDeprecated {
		return true
	}
	_, ok := statusRanks[s]
	return ok
}

// Rank returns the ordinal position of a non-terminal status. ok is false for deprecated or unknown values.
func (s Status) Rank() (int, bool) {
	rank, ok := statusRanks[s]
	return rank, ok
}

// AggregateStatus derives a parent status from its children.
//
// The result is the lowest-ranked non-deprecated child. Deprecated children are ignored unless every child is
// deprecated, in which case the result is deprecated. No children means planned. Unknown values count as planned
// so a corrupt child can never promote its parent.
func AggregateStatus(children []Status) Status {
	if len(children) == 0 {
		return StatusPlanned
	}
	minRank := -1
	for _, child := range children {
		if child == StatusDeprecated {
			continue
		}
		rank, ok := child.Rank()
		if !ok {
			rank = 0
		}
		if minRank == -1 || rank < minRank {
			minRank = rank
		}
	}
	if minRank == -1 {
		return StatusDeprecated
	}
	for status, rank := range statusRanks {
		if rank == minRank {
			return status
		}
	}
	return StatusPlanned
}
