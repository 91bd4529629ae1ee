package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// บัญชีครูที่ admin เตรียมไว้ล่วงหน้า — ครูมา claim ตอนสมัคร (unclaimed → claimed ครั้งเดียว)
type TeacherIdentity struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Identifier string `json:"identifier" gorm:"uniqueIndex;size:20;not null"` // เช่น TCH_CSE_001
	Name       string `json:"name" gorm:"size:120;not null"`
	Department string `json:"department" gorm:"size:80;not null"`

	Password        string `json:"-" gorm:"size:100"` // bcrypt hash ตั้งตอน claim
	IsClaimed       bool   `json:"is_claimed" gorm:"not null;default:false"`
	ClaimedByUserID *uint  `json:"claimed_by_user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NextIdentifier สร้างรหัสถัดไปของแผนกแบบ TCH_<DEPT3>_<seq3>
// ตัวอักษร 3 ตัวแรกของแผนก (A-Z เท่านั้น) ถ้าไม่มีใช้ "GEN"
func NextIdentifier(db *gorm.DB, department string) (string, error) {
	abbr := deptAbbr(department)

	var last TeacherIdentity
	err := db.Where("identifier LIKE ?", "TCH_"+abbr+"_%").
		Order("identifier DESC").
		First(&last).Error

	seq := 1
	if err == nil {
		if i := strings.LastIndex(last.Identifier, "_"); i >= 0 {
			if n, convErr := strconv.Atoi(last.Identifier[i+1:]); convErr == nil {
				seq = n + 1
			}
		}
	} else if err != gorm.ErrRecordNotFound {
		return "", err
	}

	return fmt.Sprintf("TCH_%s_%03d", abbr, seq), nil
}

func deptAbbr(department string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(department) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return b.String()
}
