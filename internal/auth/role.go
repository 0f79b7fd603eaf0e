// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// Role is a user's authorization level.
type Role string

// Roles ordered from least to most privileged.
const (
	RoleAlumno Role = "alumno"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleAlumno

var roleRank = map[Role]int{
	RoleAlumno: 1,
	RoleStaff:  2,
	RoleAdmin:  3,
}

// Roles returns every valid role in ascending privilege.
func Roles() []Role {
	return []Role{RoleAlumno, RoleStaff, RoleAdmin}
}

// ParseRole validates a role name. An empty name yields DefaultRole.
func ParseRole(name string) (Role, error) {
	if name == "" {
		return DefaultRole, nil
	}
	r := Role(name)
	if !r.Valid() {
		return "", invalidRoleError(name)
	}
	return r, nil
}

func invalidRoleError(name string) error {
	names := make([]string, 0, len(roleRank))
	for _, r := range Roles() {
		names = append(names, string(r))
	}
	return oops.Code(CodeInvalidRole).
		With("role", name).
		Errorf("Rol inválido. Debe ser uno de: %s", strings.Join(names, ", "))
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && roleRank[r] >= roleRank[other]
}

func (r Role) String() string {
	return string(r)
}
