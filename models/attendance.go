package models

import "time"

// บันทึกสถานะรายวันของนักเรียน — 1 แถวต่อ (student, date) บังคับด้วย unique index
// กันเคส request ซ้อนกันเช็คผ่านพร้อมกัน ให้ DB เป็นคนตัดสิน
type Attendance struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_student_date"`
	Date      string `json:"date" gorm:"size:10;not null;uniqueIndex:idx_attendance_student_date"` // YYYY-MM-DD
	Status    string `json:"status" gorm:"size:20;not null"`                                       // present|absent|late
	CheckInAt time.Time `json:"check_in_at"`
	Remarks   string    `json:"remarks,omitempty" gorm:"type:text"`

	// user id ของครู ถ้าเป็นการ mark แทน (bulk) — nil คือนักเรียน mark เอง
	MarkedByID *uint `json:"marked_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

func ValidAttendanceStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}
