package rbac

import (
	"saas-control-plane/backend/internal/membership/domain"
)

// Condition restricts a rule to instances that satisfy it.
type Condition int

const (
	// Always grants for every instance and for the bare type tag.
	Always Condition = iota
	// OwnedBySelf grants only for an Instance whose OwnerID is the acting user.
	OwnedBySelf
)

// Rule grants Action on Subject, subject to Condition.
type Rule struct {
	Action    Action
	Subject   SubjectType
	Condition Condition
}

func grant(subject SubjectType, actions ...Action) []Rule {
	out := make([]Rule, len(actions))
	for i, a := range actions {
		out[i] = Rule{Action: a, Subject: subject, Condition: Always}
	}
	return out
}

func grantOwn(subject SubjectType, actions ...Action) []Rule {
	out := make([]Rule, len(actions))
	for i, a := range actions {
		out[i] = Rule{Action: a, Subject: subject, Condition: OwnedBySelf}
	}
	return out
}

func concat(groups ...[]Rule) []Rule {
	var out []Rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultRules is the static rule table. There is no role hierarchy: what OWNER can do beyond
// ADMIN is spelled out here. A role never holds both an Always and an OwnedBySelf rule for the
// same action and subject.
var DefaultRules = map[domain.Role][]Rule{
	domain.RoleOwner: concat(
		grant(SubjectUser, Actions...),
		grant(SubjectOrganization, Actions...),
		grant(SubjectProject, Actions...),
		grant(SubjectInvite, Actions...),
		grant(SubjectBilling, Actions...),
	),
	domain.RoleAdmin: concat(
		grant(SubjectUser, ActionGet, ActionUpdate, ActionDelete),
		grant(SubjectProject, Actions...),
		grant(SubjectInvite, ActionCreate, ActionGet, ActionDelete),
		grant(SubjectBilling, ActionGet),
		grant(SubjectOrganization, ActionGet),
		grantOwn(SubjectOrganization, ActionUpdate, ActionDelete),
	),
	domain.RoleMember: concat(
		grant(SubjectUser, ActionGet),
		grant(SubjectProject, ActionCreate, ActionGet),
		grantOwn(SubjectProject, ActionUpdate, ActionDelete),
		grant(SubjectOrganization, ActionGet),
		grantOwn(SubjectOrganization, ActionUpdate, ActionDelete),
	),
	domain.RoleBilling: concat(
		grant(SubjectBilling, ActionGet, ActionUpdate),
		grant(SubjectOrganization, ActionGet),
		grantOwn(SubjectOrganization, ActionUpdate, ActionDelete),
	),
}
