package roles

import (
	"fmt"
	"sort"
	"strings"
)

// Role is one of the fixed platform roles. There is no dynamic permission
// model; authorization decisions are made against this enum only.
type Role string

const (
	SuperAdmin     Role = "SUPER_ADMIN"
	TenantAdmin    Role = "TENANT_ADMIN"
	HROfficer      Role = "HR_OFFICER"
	PayrollOfficer Role = "PAYROLL_OFFICER"
	Employee       Role = "EMPLOYEE"
)

var known = map[Role]struct{}{
	SuperAdmin:     {},
	TenantAdmin:    {},
	HROfficer:      {},
	PayrollOfficer: {},
	Employee:       {},
}

// Parse converts a stored role name into a Role.
func Parse(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := known[role]; !ok {
		return "", fmt.Errorf("roles: unknown role %q", value)
	}
	return role, nil
}

// Set is an unordered collection of roles.
type Set map[Role]struct{}

// NewSet builds a Set from the given roles.
func NewSet(list ...Role) Set {
	set := make(Set, len(list))
	for _, role := range list {
		set[role] = struct{}{}
	}
	return set
}

// ParseSet converts stored role names into a Set. Unknown names are rejected.
func ParseSet(values []string) (Set, error) {
	set := make(Set, len(values))
	for _, value := range values {
		role, err := Parse(value)
		if err != nil {
			return nil, err
		}
		set[role] = struct{}{}
	}
	return set, nil
}

// Has reports whether the set contains the role.
func (s Set) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set contains at least one of the given roles.
func (s Set) HasAny(list ...Role) bool {
	for _, role := range list {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// Names returns the role names in stable order, suitable for serialization.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for role := range s {
		names = append(names, string(role))
	}
	sort.Strings(names)
	return names
}
