// Package access implements the role-scoped authorization rules consumed by
// every API operation: a declarative capability table, the triangular
// messaging policy, and the job visibility/ownership predicates. The rules are
// pure functions; services re-check them on every mutating call rather than
// trusting any client-side filtering.
package access

import "github.com/plumbdesk/plumbdesk-api/internal/models"

// Action names a capability a role may hold.
type Action string

const (
	ActionCreateJobs      Action = "create:jobs"
	ActionEditJobs        Action = "edit:jobs"
	ActionDeleteJobs      Action = "delete:jobs"
	ActionViewAllJobs     Action = "view:all-jobs"
	ActionAcceptJobs      Action = "accept:jobs"
	ActionRejectJobs      Action = "reject:jobs"
	ActionManageEmployees Action = "manage:employees"
	ActionViewAnalytics   Action = "view:analytics"
	ActionExportJobs      Action = "export:jobs"
)

// capabilities is the role → permitted actions table. Evaluated per request;
// never cached on the client side alone.
var capabilities = map[models.UserRole]map[Action]struct{}{
	models.RoleAdmin: actionSet(
		ActionCreateJobs, ActionEditJobs, ActionDeleteJobs, ActionViewAllJobs,
		ActionManageEmployees, ActionViewAnalytics, ActionExportJobs,
	),
	models.RoleReceptionist: actionSet(
		ActionCreateJobs, ActionEditJobs, ActionDeleteJobs, ActionViewAllJobs,
		ActionExportJobs,
	),
	models.RoleContractor: actionSet(
		ActionAcceptJobs, ActionRejectJobs,
	),
}

// messagingPairs encodes the triangular policy: the receptionist is the hub,
// contractor↔receptionist and admin↔receptionist are the only allowed pairs.
var messagingPairs = map[models.UserRole][]models.UserRole{
	models.RoleAdmin:        {models.RoleReceptionist},
	models.RoleContractor:   {models.RoleReceptionist},
	models.RoleReceptionist: {models.RoleAdmin, models.RoleContractor},
}

func actionSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Can reports whether the role holds the capability.
func Can(role models.UserRole, action Action) bool {
	set, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// CanMessage reports whether a sender role may address a receiver role. The
// same predicate gates the send path and the recipient listing.
func CanMessage(sender, receiver models.UserRole) bool {
	for _, allowed := range messagingPairs[sender] {
		if allowed == receiver {
			return true
		}
	}
	return false
}

// MessageableRoles returns the roles the sender may address.
func MessageableRoles(sender models.UserRole) []models.UserRole {
	return messagingPairs[sender]
}

// JobVisible reports whether the job falls inside the user's visibility
// scope. Contractors see only jobs assigned to them that are pending or
// accepted; receptionists and admins see everything.
func JobVisible(user *models.AuthUser, job *models.Job) bool {
	if Can(user.Role, ActionViewAllJobs) {
		return true
	}
	if user.Role != models.RoleContractor {
		return false
	}
	if job.EmployeeAssigned == nil || *job.EmployeeAssigned != user.ID {
		return false
	}
	return job.AssignmentStatus == models.AssignmentPending || job.AssignmentStatus == models.AssignmentAccepted
}

// CanEditJob reports whether the user may update the job. Admins edit any
// job, receptionists only jobs they created, contractors only jobs assigned
// to them that they have already accepted.
func CanEditJob(user *models.AuthUser, job *models.Job) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleReceptionist:
		return job.CreatedBy == user.ID
	case models.RoleContractor:
		return job.EmployeeAssigned != nil && *job.EmployeeAssigned == user.ID &&
			job.AssignmentStatus == models.AssignmentAccepted
	default:
		return false
	}
}

// CanDeleteJob reports whether the user may delete the job. Admins delete any
// job, creators their own, contractors only accepted jobs assigned to them.
func CanDeleteJob(user *models.AuthUser, job *models.Job) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	if job.CreatedBy == user.ID {
		return true
	}
	if user.Role == models.RoleContractor {
		return job.EmployeeAssigned != nil && *job.EmployeeAssigned == user.ID &&
			job.AssignmentStatus == models.AssignmentAccepted
	}
	return false
}

// JobScope translates the user's visibility into a repository filter.
func JobScope(user *models.AuthUser) models.JobFilter {
	if user.Role == models.RoleContractor {
		return models.JobFilter{
			ContractorID: user.ID,
			AssignmentStatuses: []models.AssignmentStatus{
				models.AssignmentPending,
				models.AssignmentAccepted,
			},
		}
	}
	return models.JobFilter{}
}
