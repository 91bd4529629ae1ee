package models

import "time"

type LeaveApplication struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	StudentID uint   `json:"student_id" gorm:"index;not null"`
	StartDate string `json:"start_date" gorm:"size:10;not null"` // YYYY-MM-DD (รวมวันแรก)
	EndDate   string `json:"end_date" gorm:"size:10;not null"`   // YYYY-MM-DD (รวมวันสุดท้าย)
	Reason    string `json:"reason" gorm:"type:text;not null"`
	Status    string `json:"status" gorm:"size:20;not null;default:pending"` // pending|approved|rejected

	ReviewerRemarks string     `json:"reviewer_remarks,omitempty" gorm:"type:text"`
	ReviewedByID    *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// จำนวนวันลาแบบรวมปลายทั้งสองข้าง (คืน 0 ถ้า parse ไม่ได้)
func (l *LeaveApplication) Duration() int {
	start, err1 := time.Parse("2006-01-02", l.StartDate)
	end, err2 := time.Parse("2006-01-02", l.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
