package entitlement

import "github.com/smallbiznis/bizplannaija/internal/pricing"

// LimitCheck is the result of comparing usage against a limit.
type LimitCheck string

const (
	LimitAllowed   LimitCheck = "allowed"
	LimitSoftBlock LimitCheck = "soft_block"
	LimitHardBlock LimitCheck = "hard_block"
)

// CheckLimit evaluates used units against key. HardBlock means no further
// unit fits; SoftBlock means usage is at or above 90% of the limit.
func (e *Entitlement) CheckLimit(key pricing.LimitKey, used int) LimitCheck {
	limit := e.Limit(key)
	if limit.IsUnlimited() {
		return LimitAllowed
	}
	if !limit.Allows(used) {
		return LimitHardBlock
	}
	if int64(used)*10 >= int64(limit)*9 {
		return LimitSoftBlock
	}
	return LimitAllowed
}
