package entity

type Participant struct {
	ID            int `gorm:"primaryKey"`
	AppointmentID int `gorm:"not null;uniqueIndex:idx_participant"` // References: appointments(id)
	UserID        int `gorm:"not null;uniqueIndex:idx_participant"` // References: users(id)

	User User `gorm:"foreignKey:UserID;references:ID"`
}
