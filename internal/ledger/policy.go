package ledger

// Action is the escalation decision for one recorded offense.
type Action string

const (
	ActionWarn     Action = "warn"
	ActionRestrict Action = "restrict"
)

// Decide maps a daily offense count to an action. A non-positive limit
// disables restriction entirely.
func Decide(dailyCount, limit int) Action {
	if limit > 0 && dailyCount >= limit {
		return ActionRestrict
	}
	return ActionWarn
}
