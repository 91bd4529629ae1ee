// scripts/seed_identities.go
//
// สร้าง TeacherIdentity ล่วงหน้า (ขั้นตอน out-of-band ของ admin)
// ครูเอา identifier ที่ได้ไปสมัครแล้วระบบจะ claim ให้ตอน register
//
//	go run ./scripts -name "Dr. Sarah Johnson" -dept "Computer Science"
//	go run ./scripts -id TCH_CSE_010 -name "Dr. Sarah Johnson" -dept "Computer Science"
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/Himanshuyadav6764/attendance-system/config"
	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

func main() {
	id := flag.String("id", "", "identifier (ว่าง = สร้างรหัสถัดไปของแผนกให้)")
	name := flag.String("name", "", "display name")
	dept := flag.String("dept", "", "department")
	flag.Parse()

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*dept) == "" {
		log.Fatal("both -name and -dept are required")
	}

	// โหลด config และเชื่อม DB ตามที่ main.go ใช้จริง
	cfg := config.Load()
	database.Connect(cfg)

	identifier := strings.TrimSpace(*id)
	if identifier == "" {
		next, err := models.NextIdentifier(database.DB, *dept)
		if err != nil {
			log.Fatalf("failed to generate identifier: %v", err)
		}
		identifier = next
	}

	// ตรวจว่ามี identifier เดียวกันอยู่หรือไม่
	var existing models.TeacherIdentity
	err := database.DB.Where("identifier = ?", identifier).First(&existing).Error
	if err == nil {
		fmt.Println("identity already exists:", identifier)
		if existing.IsClaimed {
			fmt.Println("(already claimed by user id", *existing.ClaimedByUserID, ")")
		}
		return
	}
	if err != gorm.ErrRecordNotFound {
		log.Fatalf("failed to query identities: %v", err)
	}

	rec := models.TeacherIdentity{
		Identifier: identifier,
		Name:       strings.TrimSpace(*name),
		Department: strings.TrimSpace(*dept),
	}
	if err := database.DB.Create(&rec).Error; err != nil {
		log.Fatalf("failed to insert identity: %v", err)
	}

	fmt.Println("teacher identity created")
	fmt.Println("   Identifier:", rec.Identifier)
	fmt.Println("   Name:      ", rec.Name)
	fmt.Println("   Department:", rec.Department)
	fmt.Println("ครูใช้ identifier นี้สมัครที่หน้า register ได้เลย")
}
