package database

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bioscan/internal/models"
)

// SeedDoctorUser ensures at least one doctor account exists so reports can be
// reviewed on a fresh install. A blank password disables seeding.
func SeedDoctorUser(db *gorm.DB, email, password string) {
	if email == "" || password == "" {
		log.Println("Info: doctor seed credentials not set, skipping seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("⚠️ Doctor seed skipped, hash failed: %v", err)
		return
	}

	doctor := models.User{
		Email:          email,
		HashedPassword: string(hash),
		Role:           models.RoleDoctor,
	}

	// UPSERT on email so restarts never duplicate or reset the account.
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&doctor)

	if result.Error != nil {
		log.Printf("⚠️ Doctor seed failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("🌱 Seeded doctor account %s", email)
	}
}
