package entity

import "gorm.io/datatypes"

const (
	ActionNoShowPrediction = "no_show_prediction"
	ActionRoleChange       = "role_change"
	ActionAppointmentNew   = "appointment_created"
	ActionAppointmentDel   = "appointment_deleted"
	ActionUserSignup       = "user_signup"
)

// AuditLog rows are append-only. CreatedAt is assigned by the repository on insert.
type AuditLog struct {
	ID        int            `gorm:"primaryKey"`
	Action    string         `gorm:"size:64;not null;index"`
	SubjectID int            `gorm:"not null;index"` // References: users(id)
	Payload   datatypes.JSON `gorm:"type:json"`
	CreatedAt int64          `gorm:"not null;index;autoCreateTime:milli"`
}

type AuditFilter struct {
	Action    string
	SubjectID int
	Limit     int
}
