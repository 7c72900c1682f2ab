package domain

// Principal is an authenticated caller.
type Principal struct {
	Name  string
	Roles []Role
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
