package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Himanshuyadav6764/attendance-system/config"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	// TranslateError เพื่อให้ unique violation ออกมาเป็น gorm.ErrDuplicatedKey
	// (ใช้ตัดสินเคส mark ซ้ำ/claim ซ้ำ ที่ชั้น DB แทน check-then-act อย่างเดียว)
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}

// Migrate แยกออกมาให้ script/test เรียกใช้กับ DB ของตัวเองได้
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.TeacherIdentity{},
		&models.Attendance{},
		&models.LeaveApplication{},
	)
}
