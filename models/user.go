package models

import "time"

type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"size:120"` // จำเป็นเฉพาะ student (teacher ใช้ชื่อจาก TeacherIdentity)
	Email    string `json:"email" gorm:"uniqueIndex;size:120;not null"`
	Password string `json:"-" gorm:"not null"`                             // เก็บ bcrypt hash
	Role     string `json:"role" gorm:"size:20;not null;default:student"`  // "student" | "teacher"

	// Student เท่านั้น — unique เฉพาะในกลุ่ม student (เช็คก่อน create เพราะ teacher ไม่มีค่า)
	RollNumber string `json:"roll_number,omitempty" gorm:"size:30;index"`

	// Teacher เท่านั้น — FK logic ไปที่ teacher_identities.identifier
	TeacherID string `json:"teacher_id,omitempty" gorm:"size:20;index"`

	Department string `json:"department" gorm:"size:80"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)
