package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Limit is a quantity cap. Unlimited stands in for an infinite allowance.
type Limit int64

const Unlimited Limit = -1

func (l Limit) IsUnlimited() bool {
	return l < 0
}

// Allows reports whether one more unit fits when used units are consumed.
func (l Limit) Allows(used int) bool {
	if l.IsUnlimited() {
		return true
	}
	return int64(used) < int64(l)
}

// Float returns +Inf for Unlimited.
func (l Limit) Float() float64 {
	if l.IsUnlimited() {
		return math.Inf(1)
	}
	return float64(l)
}

func (l Limit) String() string {
	if l.IsUnlimited() {
		return "unlimited"
	}
	return strconv.FormatInt(int64(l), 10)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.FormatInt(int64(l), 10)), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLimit(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLimit accepts integers, -1, "unlimited", "infinity" and numeric strings.
func ParseLimit(raw any) (Limit, error) {
	switch v := raw.(type) {
	case Limit:
		return v, nil
	case int:
		return limitFromInt(int64(v)), nil
	case int32:
		return limitFromInt(int64(v)), nil
	case int64:
		return limitFromInt(v), nil
	case uint:
		return limitFromInt(int64(v)), nil
	case uint64:
		return limitFromInt(int64(v)), nil
	case float64:
		if math.IsInf(v, 1) {
			return Unlimited, nil
		}
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("limit %v is not a whole number", v)
		}
		return limitFromInt(int64(v)), nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case "unlimited", "infinity", "inf":
			return Unlimited, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid limit %q", v)
		}
		return limitFromInt(n), nil
	default:
		return 0, fmt.Errorf("invalid limit type %T", raw)
	}
}

func limitFromInt(n int64) Limit {
	if n < 0 {
		return Unlimited
	}
	return Limit(n)
}
