package entity

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Appointment times are epoch milliseconds. EndsAt is exclusive.
type Appointment struct {
	ID            int      `gorm:"primaryKey"`
	UID           string   `gorm:"uniqueIndex;not null"`
	BeginsAt      int64    `gorm:"not null;index"`
	EndsAt        int64    `gorm:"not null"`
	UserID        int      `gorm:"not null;index"` // References: users(id)
	Title         string   `gorm:"size:128;not null"`
	Description   *string  `gorm:"type:text"`
	Priority      Priority `gorm:"size:16;not null;default:'medium'"`
	IsMultiPerson bool     `gorm:"not null"`
	IsDeleted     bool     `gorm:"not null"`
	CreatedAt     int64    `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt     int64    `gorm:"not null;autoUpdateTime:milli"`

	// Relations
	CreatedBy    User           `gorm:"foreignKey:UserID;references:ID"`
	Participants []*Participant `gorm:"foreignKey:AppointmentID"`
}

func (a *Appointment) DurationMinutes() float64 {
	return float64(a.EndsAt-a.BeginsAt) / 60000
}
