package utils

import "screedflow/models"

// Dashboard actions a member may be offered.
const (
	ActionViewDashboard   = "view_dashboard"
	ActionViewReports     = "view_reports"
	ActionRequestAIReport = "request_ai_report"
	ActionChat            = "chat_assistant"
	ActionRecordWork      = "record_work"
	ActionEditTasks       = "edit_tasks"
	ActionUpdateStock     = "update_stock"
	ActionUploadFloorPlan = "upload_floor_plan"
	ActionEditBaselines   = "edit_baselines"
	ActionCreateProject   = "create_project"
	ActionManageTeam      = "manage_team"
	ActionExport          = "export"
)

var offered = map[models.AccessLevel][]string{
	models.AccessAdmin: {
		ActionViewDashboard, ActionViewReports, ActionRequestAIReport, ActionChat, ActionRecordWork,
		ActionEditTasks, ActionUpdateStock, ActionUploadFloorPlan, ActionEditBaselines, ActionCreateProject,
		ActionManageTeam, ActionExport,
	},
	models.AccessEditor: {
		ActionViewDashboard, ActionViewReports, ActionRequestAIReport, ActionChat, ActionRecordWork,
		ActionEditTasks, ActionUpdateStock, ActionUploadFloorPlan, ActionExport,
	},
	models.AccessViewer: {ActionViewDashboard, ActionChat},
	models.AccessClient: {ActionViewDashboard, ActionViewReports, ActionRequestAIReport, ActionExport},
}

// OfferedActions lists what the UI should show for an access level. Nothing is enforced
// server side. Unknown levels get the viewer set.
func OfferedActions(level models.AccessLevel) []string {
	actions, ok := offered[level]
	if !ok {
		actions = offered[models.AccessViewer]
	}
	return append([]string(nil), actions...)
}
