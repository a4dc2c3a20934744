package auth

// Role is the closed set of actor roles. Role checks go through Capability
// rather than ad hoc string comparisons.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleEmployee   Role = "employee"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleSupervisor, RoleEmployee:
		return true
	default:
		return false
	}
}

// Capability names an operation class an actor may be allowed to perform
type Capability string

const (
	// CapManageStages covers stage and work order creation and editing,
	// including dependency edges
	CapManageStages Capability = "manage_stages"

	// CapDeleteStages covers physical removal of stages and work orders
	CapDeleteStages Capability = "delete_stages"

	// CapRecordProgress covers quantity-based progress updates
	CapRecordProgress Capability = "record_progress"

	// CapViewReports covers stats and aggregation endpoints
	CapViewReports Capability = "view_reports"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleSuperAdmin: {
		CapManageStages:   true,
		CapDeleteStages:   true,
		CapRecordProgress: true,
		CapViewReports:    true,
	},
	RoleAdmin: {
		CapManageStages:   true,
		CapDeleteStages:   true,
		CapRecordProgress: true,
		CapViewReports:    true,
	},
	RoleSupervisor: {
		CapManageStages:   true,
		CapRecordProgress: true,
		CapViewReports:    true,
	},
	RoleEmployee: {
		CapRecordProgress: true,
	},
}

// Can reports whether the role carries the capability
func (r Role) Can(cap Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	return caps[cap]
}

// Actor is the already-verified identity of the caller, supplied by the
// upstream auth layer. The engine never re-validates credentials.
type Actor struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId"`
}

// Can reports whether the actor carries the capability
func (a *Actor) Can(cap Capability) bool {
	if a == nil {
		return false
	}
	return a.Role.Can(cap)
}

// CanAccessStage reports whether the actor may record progress against a
// stage assigned to assignedUserID under supervisorID. Employees are limited
// to their own assignments; supervisors to stages they supervise.
func (a *Actor) CanAccessStage(assignedUserID, supervisorID string) bool {
	if a == nil {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleSupervisor:
		return supervisorID == "" || supervisorID == a.UserID
	case RoleEmployee:
		return assignedUserID == a.UserID
	default:
		return false
	}
}
