package domain

import (
	"fmt"
	"strings"
)

// ExecutionMode is the process-wide role of this instance.
type ExecutionMode string

const (
	ModeStandalone ExecutionMode = "STANDALONE"
	ModeCluster    ExecutionMode = "CLUSTER"
	ModeSlave      ExecutionMode = "SLAVE"
)

// ParseExecutionMode parses a configured execution mode. The empty string
// selects STANDALONE.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch m := ExecutionMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return ModeStandalone, nil
	case ModeStandalone, ModeCluster, ModeSlave:
		return m, nil
	default:
		return "", fmt.Errorf("unknown execution mode: %q", s)
	}
}

// Role is a caller role checked by the access policy of each route.
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleCreator Role = "CREATOR"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleGuest, RoleCreator, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// ParseRoles parses a list of role names, failing on the first unknown one.
func ParseRoles(names []string) ([]Role, error) {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}
