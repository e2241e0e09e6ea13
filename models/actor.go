package models

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleReceptionist Role = "receptionist"
	RoleTechnician   Role = "technician"
)

// ParseRole maps a free-text role name onto the closed role set.
func ParseRole(name string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(name))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleReceptionist:
		return RoleReceptionist, nil
	case RoleTechnician:
		return RoleTechnician, nil
	default:
		return "", fmt.Errorf("unknown role %q", name)
	}
}

// Capabilities are derived once from the role and consulted everywhere else.
type Capabilities struct {
	CanAssignTechnician  bool `json:"canAssignTechnician"`
	CanMarkDelivered     bool `json:"canMarkDelivered"`
	CanSeeProfit         bool `json:"canSeeProfit"`
	CanOverrideDelivered bool `json:"canOverrideDelivered"`
}

// Actor is the authenticated user acting on a service.
type Actor struct {
	UserID       string       `json:"userId"`
	Role         Role         `json:"role"`
	Capabilities Capabilities `json:"capabilities"`
}

// NewActor builds an actor with the capabilities of its role.
func NewActor(userID string, role Role) Actor {
	var caps Capabilities
	switch role {
	case RoleAdmin:
		caps = Capabilities{
			CanAssignTechnician:  true,
			CanMarkDelivered:     true,
			CanSeeProfit:         true,
			CanOverrideDelivered: true,
		}
	case RoleManager:
		caps = Capabilities{CanAssignTechnician: true, CanMarkDelivered: true}
	case RoleReceptionist:
		caps = Capabilities{CanMarkDelivered: true}
	}
	return Actor{UserID: userID, Role: role, Capabilities: caps}
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	jwt.RegisteredClaims
}
