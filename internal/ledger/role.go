package ledger

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleMinter
	RoleVerifier
	RoleFarmer
	RoleBuyer
	RoleRetirement
)

var roleNames = map[Role]string{
	RoleAdmin:      "ADMIN",
	RoleMinter:     "MINTER",
	RoleVerifier:   "VERIFIER",
	RoleFarmer:     "FARMER",
	RoleBuyer:      "BUYER",
	RoleRetirement: "RETIREMENT",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole resolves a role from its upper-case name.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type roleSet = mapset.Set[Role]

func newRoleSet() roleSet {
	return mapset.NewThreadUnsafeSet[Role]()
}

func sortedRoles(s roleSet) []Role {
	roles := s.ToSlice()
	slices.Sort(roles)
	return roles
}
