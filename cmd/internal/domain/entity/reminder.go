package entity

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

type Reminder struct {
	ID            string  `gorm:"primaryKey;size:36"`
	AppointmentID int     `gorm:"not null;index"` // References: appointments(id)
	UserID        int     `gorm:"not null"`       // References: users(id)
	Channel       Channel `gorm:"size:16;not null"`
	SendAt        int64   `gorm:"not null;index"`
	SentAt        *int64
	Attempts      int `gorm:"not null"`
	LastError     *string
	CreatedAt     int64 `gorm:"not null;autoCreateTime:milli"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID;references:ID"`
	User        User        `gorm:"foreignKey:UserID;references:ID"`
}
