package models

import "gorm.io/gorm"

// Report is one uploaded chest X-ray and its analysis outcome.
//
// Analysis is produced exactly once at upload time and never recomputed.
// DoctorComment is the only mutable field; later comments overwrite earlier
// ones, no history is kept.
type Report struct {
	gorm.Model

	// Filename is the display name as supplied by the uploader. The stored
	// object lives under StorageKey so colliding client filenames never
	// overwrite each other.
	Filename   string `gorm:"not null" json:"filename"`
	StorageKey string `gorm:"uniqueIndex;not null" json:"-"`

	Analysis      string  `gorm:"not null" json:"analysis"`
	DoctorComment *string `json:"doctor_comment"`

	OwnerID uint `gorm:"index;not null" json:"owner_id"`
	Owner   User `json:"-"`
}
