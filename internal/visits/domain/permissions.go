package domain

// Action is a role-guarded operation on a visit.
type Action string

const (
	ActionStartReview       Action = "StartReview"
	ActionApprove           Action = "Approve"
	ActionReject            Action = "Reject"
	ActionRequestCorrection Action = "RequestCorrection"
)

// Role names mirrored from the JWT claims.
const (
	RoleAdmin      = "Admin"
	RoleManager    = "Manager"
	RolePMEngineer = "PMEngineer"
)

// permissionPolicy maps each guarded action to the roles allowed to perform
// it. A single table, so the review policy is testable in one place instead
// of inline role comparisons scattered per transition.
var permissionPolicy = map[Action]map[string]bool{
	ActionStartReview:       {RoleManager: true, RoleAdmin: true},
	ActionApprove:           {RoleManager: true, RoleAdmin: true},
	ActionReject:            {RoleManager: true, RoleAdmin: true},
	ActionRequestCorrection: {RoleManager: true, RoleAdmin: true},
}

// Allowed reports whether the role may perform the action.
func Allowed(role string, action Action) bool {
	return permissionPolicy[action][role]
}
