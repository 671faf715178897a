package domain

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleBenevole Role = "benevole"
	RoleAdmin    Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleCapabilities[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}

	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Staff roles borrow for free.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleBenevole
}

type Capability string

const (
	CapUserCreate    Capability = "user_create"
	CapUserManage    Capability = "user_manage"
	CapUserView      Capability = "user_view"
	CapItemManage    Capability = "item_manage"
	CapLoanCreate    Capability = "loan_create"
	CapLoanManage    Capability = "loan_manage"
	CapLoanDelete    Capability = "loan_delete"
	CapBookingCreate Capability = "booking_create"
	CapBookingManage Capability = "booking_manage"
	CapBookingDelete Capability = "booking_delete"
	CapLedgerView    Capability = "ledger_view"
	CapStatsView     Capability = "stats_view"
	CapSystem        Capability = "system"
)

var allCapabilities = []Capability{
	CapUserCreate, CapUserManage, CapUserView, CapItemManage,
	CapLoanCreate, CapLoanManage, CapLoanDelete,
	CapBookingCreate, CapBookingManage, CapBookingDelete,
	CapLedgerView, CapStatsView, CapSystem,
}

var userCapabilities = []Capability{
	CapBookingCreate, CapBookingDelete,
}

var benevoleCapabilities = append([]Capability{
	CapUserCreate, CapUserManage, CapUserView, CapItemManage,
	CapLoanCreate, CapLoanManage,
	CapBookingManage, CapStatsView,
}, userCapabilities...)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleUser:     capabilitySet(userCapabilities),
	RoleBenevole: capabilitySet(benevoleCapabilities),
	RoleAdmin:    capabilitySet(allCapabilities),
}

func capabilitySet(caps []Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}

	return set
}

// CapabilitiesOf returns the capabilities held by role, in declaration order.
func CapabilitiesOf(role Role) []Capability {
	set := roleCapabilities[role]

	caps := make([]Capability, 0, len(set))
	for _, c := range allCapabilities {
		if _, ok := set[c]; ok {
			caps = append(caps, c)
		}
	}

	return caps
}

func (r Role) Can(c Capability) bool {
	_, ok := roleCapabilities[r][c]
	return ok
}

// ForbiddenError names the missing capability. It is meant for the logs, the
// caller only sees a generic denial.
type ForbiddenError struct {
	Role       Role
	Capability Capability
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q lacks capability %q", e.Role, e.Capability)
}

func Require(role Role, c Capability) error {
	if !role.Can(c) {
		return &ForbiddenError{Role: role, Capability: c}
	}

	return nil
}

// Identity is the resolved caller of an operation.
type Identity struct {
	UserID uint `json:"id"`
	Role   Role `json:"role"`
}

func (i Identity) Require(c Capability) error {
	return Require(i.Role, c)
}
