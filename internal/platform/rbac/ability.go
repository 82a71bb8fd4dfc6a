package rbac

import (
	"saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/platform/apperr"
)

// Ability answers permission questions for one user acting with one role.
type Ability struct {
	userID string
	rules  []Rule
}

// Evaluate returns the Ability of userID holding role under DefaultRules.
func Evaluate(userID string, role domain.Role) Ability {
	return EvaluateWith(DefaultRules, userID, role)
}

// EvaluateWith is Evaluate against an explicit rule table. An unknown role gets no rules.
func EvaluateWith(table map[domain.Role][]Rule, userID string, role domain.Role) Ability {
	return Ability{userID: userID, rules: table[role]}
}

// Can reports whether action is permitted on subject. Absence of a matching rule is a deny.
func (a Ability) Can(action Action, subject Subject) bool {
	if subject == nil {
		return false
	}
	typ := subject.SubjectType()
	for _, r := range a.rules {
		if r.Action != action || r.Subject != typ {
			continue
		}
		switch r.Condition {
		case Always:
			return true
		case OwnedBySelf:
			if a.ownedBySelf(subject) {
				return true
			}
		}
	}
	return false
}

// Cannot is the negation of Can.
func (a Ability) Cannot(action Action, subject Subject) bool {
	return !a.Can(action, subject)
}

func (a Ability) ownedBySelf(subject Subject) bool {
	switch s := subject.(type) {
	case Instance:
		return a.userID != "" && s.OwnerID == a.userID
	case SubjectType:
		// a bare tag carries no owner
		return false
	default:
		return false
	}
}

// Authorize returns an Unauthorized error carrying msg when action on subject is denied.
func (a Ability) Authorize(action Action, subject Subject, msg string) error {
	if a.Cannot(action, subject) {
		return apperr.Unauthorized(msg)
	}
	return nil
}
