// Package rbac holds the authorization core: the action/subject model, the per-role rule table,
// the evaluator that answers can/cannot, and the membership resolver that feeds it.
package rbac

// Action is a verb a rule can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionGet    Action = "get"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists every action.
var Actions = []Action{ActionCreate, ActionGet, ActionUpdate, ActionDelete}

// Subject is what an action is performed against. It is either a bare SubjectType
// (any instance of that type) or an Instance carrying ownership data.
type Subject interface {
	SubjectType() SubjectType
	isSubject()
}

// SubjectType is the bare type tag. It satisfies Subject on its own.
type SubjectType string

const (
	SubjectUser         SubjectType = "User"
	SubjectOrganization SubjectType = "Organization"
	SubjectProject      SubjectType = "Project"
	SubjectInvite       SubjectType = "Invite"
	SubjectBilling      SubjectType = "Billing"
)

// SubjectTypes lists every subject type.
var SubjectTypes = []SubjectType{SubjectUser, SubjectOrganization, SubjectProject, SubjectInvite, SubjectBilling}

func (t SubjectType) SubjectType() SubjectType { return t }
func (SubjectType) isSubject()                  {}

// Instance is a concrete resource. It must be built from the record loaded from the store,
// never from request input, since OwnerID decides ownership rules.
type Instance struct {
	Type    SubjectType
	ID      string
	OwnerID string
}

func (i Instance) SubjectType() SubjectType { return i.Type }
func (Instance) isSubject()                  {}

// NewInstance returns the Instance subject for a stored resource.
func NewInstance(t SubjectType, id, ownerID string) Instance {
	return Instance{Type: t, ID: id, OwnerID: ownerID}
}
