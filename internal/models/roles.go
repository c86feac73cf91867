package models

// Role identifies what a participant may do in the cash-in/cash-out workflow.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Activation bonuses, in the smallest currency unit.
const (
	UserActivationBonus  int64 = 40
	AgentActivationBonus int64 = 10000
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// ActivationBonus returns the one-time credit granted when an account of this role is first activated.
func (r Role) ActivationBonus() int64 {
	switch r {
	case RoleUser:
		return UserActivationBonus
	case RoleAgent:
		return AgentActivationBonus
	default:
		return 0
	}
}
