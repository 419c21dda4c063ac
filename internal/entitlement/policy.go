package entitlement

import "strings"

// MalformedTimestampPolicy decides what an unparseable planUpdatedAt means on
// a paid plan.
type MalformedTimestampPolicy string

const (
	// FailOpen keeps the paid plan (the stored record never expires).
	FailOpen MalformedTimestampPolicy = "fail_open"
	// FailClosed treats the paid plan as expired.
	FailClosed MalformedTimestampPolicy = "fail_closed"
)

type Policy struct {
	MalformedTimestamp MalformedTimestampPolicy
}

func DefaultPolicy() Policy {
	return Policy{MalformedTimestamp: FailOpen}
}

func ParseMalformedTimestampPolicy(raw string) MalformedTimestampPolicy {
	switch MalformedTimestampPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case FailClosed:
		return FailClosed
	default:
		return FailOpen
	}
}
