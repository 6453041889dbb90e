package models

import "time"

// Role is the access level of a user. Doctors can see every report and
// annotate them; patients only see their own.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"` // Hidden from JSON
	Role           Role      `gorm:"type:varchar(20);default:'patient'" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Reports []Report `gorm:"foreignKey:OwnerID" json:"-"`
}
