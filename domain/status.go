package domain

import "fmt"

// BuildStatus represents the state of a build record
type BuildStatus int

const (
	BuildStatusPending BuildStatus = iota
	BuildStatusBuilding
	BuildStatusSuccessful
	BuildStatusFailed
)

func (s BuildStatus) String() string {
	switch s {
	case BuildStatusPending:
		return "pending"
	case BuildStatusBuilding:
		return "building"
	case BuildStatusSuccessful:
		return "successful"
	case BuildStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Display is the human-facing capitalized form used on the status badge.
func (s BuildStatus) Display() string {
	switch s {
	case BuildStatusPending:
		return "Pending"
	case BuildStatusBuilding:
		return "Building"
	case BuildStatusSuccessful:
		return "Successful"
	case BuildStatusFailed:
		return "Failed"
	default:
		return "Pending"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s BuildStatus) Terminal() bool {
	return s == BuildStatusSuccessful || s == BuildStatusFailed
}

// BadgeColor is the badge background for this status.
func (s BuildStatus) BadgeColor() string {
	switch s {
	case BuildStatusPending:
		return "#9f9f9f" // grey
	case BuildStatusBuilding:
		return "#dfb317" // yellow
	case BuildStatusSuccessful:
		return "#4c1" // green
	case BuildStatusFailed:
		return "#e05d44" // red
	default:
		return "#9f9f9f"
	}
}

func ParseBuildStatus(s string) (BuildStatus, error) {
	switch s {
	case "pending":
		return BuildStatusPending, nil
	case "building":
		return BuildStatusBuilding, nil
	case "successful":
		return BuildStatusSuccessful, nil
	case "failed":
		return BuildStatusFailed, nil
	default:
		return BuildStatusPending, fmt.Errorf("invalid build status: %q", s)
	}
}
