package workflow

// Role is a coarse authorization category assigned to an actor
type Role string

const (
	RoleSubmitter Role = "submitter"
	RoleApprover  Role = "approver"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
