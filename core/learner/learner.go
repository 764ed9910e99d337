// Package learner holds the identity of whoever a progress session belongs to.
// Authentication itself is delegated to the identity provider; we only read its claims.
package learner

import (
	"net/mail"
	"strings"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Manager
	RoleManager = "manager:"

	// Instructor
	RoleInstructor = "instructor:"

	// Learner
	RoleLearner = "learner:"
)

var (
	AllRoles = []string{RoleAdmin, RoleManager, RoleInstructor, RoleLearner}

	rolePriorities = map[string]int{
		RoleAdmin:      30,
		RoleManager:    20,
		RoleInstructor: 10,
		RoleLearner:    1,
	}
)

func RolePriority(role string) int {
	for prefix, priority := range rolePriorities {
		if strings.HasPrefix(role, prefix) {
			return priority
		}
	}
	return 0
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Learner struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (l Learner) RoleStartsWith(prefix string) bool {
	for _, role := range l.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (l Learner) IsAdmin() bool      { return l.RoleStartsWith(RoleAdmin) }
func (l Learner) IsManager() bool    { return l.RoleStartsWith(RoleManager) }
func (l Learner) IsInstructor() bool { return l.RoleStartsWith(RoleInstructor) }

// CanManage reports whether l may assign mandatory courses & tasks to other learners.
func (l Learner) CanManage() bool { return l.IsAdmin() || l.IsManager() }

// Address is the mail recipient for l, ok is false when l has no email.
func (l Learner) Address() (mail.Address, bool) {
	if l.Email == "" {
		return mail.Address{}, false
	}
	return mail.Address{Name: l.Name, Address: l.Email}, true
}
