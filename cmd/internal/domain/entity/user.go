package entity

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID            int    `gorm:"primaryKey"`
	SubUUID       string `gorm:"uniqueIndex;not null"` // Cognito "sub"
	Username      string `gorm:"size:80;not null"`
	Email         string `gorm:"uniqueIndex;not null"`
	EmailVerified bool   `gorm:"not null"`
	Role          Role   `gorm:"size:16;not null;default:'user'"`
	CreatedAt     int64  `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt     int64  `gorm:"not null;autoUpdateTime:milli"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasAnyRole reports whether the user holds one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
