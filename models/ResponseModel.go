package models

// ErrorResponse is used in @Failure for swagger
type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty" example:""`
}

// ValidationErrorResponse carries field-level validation failures.
type ValidationErrorResponse struct {
	Error  string       `json:"error" example:"validation failed"`
	Fields []FieldError `json:"fields"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Task updated successfully"`
}

// PersistenceErrorResponse is returned when a write did not take effect.
type PersistenceErrorResponse struct {
	Error     string `json:"error" example:"failed to save tasks"`
	Details   string `json:"details,omitempty" example:"connection refused"`
	Persisted bool   `json:"persisted" example:"false"`
}

// SessionRequest selects the identity the dashboard acts as.
type SessionRequest struct {
	MemberID string `json:"member_id" binding:"required" example:"2"`
}

type SessionResponse struct {
	Token   string     `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	Member  TeamMember `json:"member"`
	Actions []string   `json:"actions"`
}

type ActionsResponse struct {
	MemberID    string      `json:"member_id" example:"2"`
	AccessLevel AccessLevel `json:"access_level" example:"Editor"`
	Actions     []string    `json:"actions"`
}

// RecordWorkRequest adds completed area to a task.
type RecordWorkRequest struct {
	AreaM2 float64 `json:"area_m2" binding:"required" example:"120"`
	Note   string  `json:"note,omitempty" example:"Pour finished before noon"`
}

// StockAdjustmentRequest either sets stock outright or applies a delta.
type StockAdjustmentRequest struct {
	Stock  *float64 `json:"stock,omitempty" example:"40"`
	Delta  *float64 `json:"delta,omitempty" example:"-5"`
	Reason string   `json:"reason,omitempty" example:"Delivery received"`
}

type SubTaskUpdateRequest struct {
	Status   *TaskStatus `json:"status,omitempty" example:"COMPLETED"`
	Progress *float64    `json:"progress,omitempty" example:"100"`
}

type MemberUpdateRequest struct {
	Role              *Role         `json:"role,omitempty" example:"Foreman"`
	Status            *MemberStatus `json:"status,omitempty" example:"on-leave"`
	AccessLevel       *AccessLevel  `json:"access_level,omitempty" example:"Editor"`
	AssignedProjectID *string       `json:"assigned_project_id,omitempty" example:"p2"`
	Unassign          bool          `json:"unassign,omitempty" example:"false"`
}

type ReportRequest struct {
	ProjectID string `json:"project_id" example:"p1"`
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required" example:"Which zone is furthest behind?"`
	ProjectID string `json:"project_id,omitempty" example:"p1"`
}

type AIResponse struct {
	Text string `json:"text" example:"Schedule variance: 4 days behind on Block A..."`
}
