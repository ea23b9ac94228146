package models

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskDelayed    TaskStatus = "DELAYED"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskDelayed}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskDelayed:
		return true
	}
	return false
}

type Role string

const (
	RoleProjectManager Role = "Project Manager"
	RoleForeman        Role = "Foreman"
	RoleScreeder       Role = "Screeder"
	RoleMixer          Role = "Mixer"
	RoleLabourer       Role = "Labourer"
	RoleLogistics      Role = "Logistics"
	RoleClient         Role = "Client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleProjectManager, RoleForeman, RoleScreeder, RoleMixer, RoleLabourer, RoleLogistics, RoleClient:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberOnLeave MemberStatus = "on-leave"
	MemberOffSite MemberStatus = "off-site"
)

func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberOnLeave || s == MemberOffSite
}

// AccessLevel decides which actions the dashboard offers a member. It is not enforced.
type AccessLevel string

const (
	AccessAdmin  AccessLevel = "Admin"
	AccessEditor AccessLevel = "Editor"
	AccessViewer AccessLevel = "Viewer"
	AccessClient AccessLevel = "Client"
)

func (a AccessLevel) Valid() bool {
	switch a {
	case AccessAdmin, AccessEditor, AccessViewer, AccessClient:
		return true
	}
	return false
}

type ProjectType string

const (
	ProjectResidential ProjectType = "residential"
	ProjectCommercial  ProjectType = "commercial"
	ProjectIndustrial  ProjectType = "industrial"
)

func (t ProjectType) Valid() bool {
	return t == ProjectResidential || t == ProjectCommercial || t == ProjectIndustrial
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectBidding   ProjectStatus = "bidding"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectBidding || s == ProjectCompleted
}

type LocationType string

const (
	LocationCentral LocationType = "central"
	LocationSite    LocationType = "site"
)

func (l LocationType) Valid() bool {
	return l == LocationCentral || l == LocationSite
}

type MaterialCategory string

const (
	CategoryConsumable     MaterialCategory = "consumable"
	CategoryPlantMachinery MaterialCategory = "plant-machinery"
	CategoryEquipment      MaterialCategory = "equipment"
)

func (c MaterialCategory) Valid() bool {
	return c == CategoryConsumable || c == CategoryPlantMachinery || c == CategoryEquipment
}

type NotificationType string

const (
	NotificationAssignment NotificationType = "assignment"
	NotificationMaterial   NotificationType = "material"
	NotificationAlert      NotificationType = "alert"
	NotificationUpdate     NotificationType = "update"
	NotificationFinancial  NotificationType = "financial"
)
