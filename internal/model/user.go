package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
	RolePatient      Role = "PATIENT"
	RoleTest         Role = "TEST"
)

// Roles lists every role the authentication boundary accepts.
var Roles = []Role{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RoleReceptionist,
	RolePatient,
	RoleTest,
}

// ParseRole converts an untrusted role string into a Role.
func ParseRole(s string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range Roles {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CurrentUser is the signed-in user as seen by the gate.
type CurrentUser struct {
	Username string
	Role     Role
}

// Operation is a write operation on a managed resource.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Operations lists every write operation.
var Operations = []Operation{OperationCreate, OperationUpdate, OperationDelete}

// AdminSession is a signed-in access code administrator. Only the keyed hash
// of the bearer token is stored.
type AdminSession struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateAdminSessionParams struct {
	Username  string
	TokenHash string
	ExpiresAt time.Time
}
