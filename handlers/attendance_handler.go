package handlers

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

type AttendanceHandler struct{}

func NewAttendanceHandler() *AttendanceHandler { return &AttendanceHandler{} }

/* ====================== DTOs ====================== */

type markAttendanceReq struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

type bulkEntry struct {
	StudentID uint   `json:"student_id"`
	Status    string `json:"status"`
	Date      string `json:"date"` // YYYY-MM-DD, ว่าง = วันนี้
	Remarks   string `json:"remarks"`
}

type bulkMarkReq struct {
	Entries []bulkEntry `json:"entries" validate:"required,min=1"`
}

type bulkResult struct {
	StudentID uint   `json:"student_id"`
	Date      string `json:"date"`
	Outcome   string `json:"outcome"` // created | updated | failed
	Error     string `json:"error,omitempty"`
}

type attendanceStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Rate    int `json:"rate"` // เปอร์เซ็นต์มาเรียน ปัดเป็นจำนวนเต็ม
}

func computeStats(rows []models.Attendance) attendanceStats {
	s := attendanceStats{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case models.StatusPresent:
			s.Present++
		case models.StatusAbsent:
			s.Absent++
		case models.StatusLate:
			s.Late++
		}
	}
	if s.Total > 0 {
		s.Rate = int(math.Round(float64(s.Present) / float64(s.Total) * 100))
	}
	return s
}

/* ====================== Student ====================== */

// POST /attendance — นักเรียน mark ตัวเอง วันละครั้ง
func (h *AttendanceHandler) Mark(c echo.Context) error {
	uid, _ := currentUser(c)

	var req markAttendanceReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.StatusPresent
	}
	if !models.ValidAttendanceStatus(status) {
		return respondErr(c, http.StatusBadRequest, "Status must be present, absent, or late.")
	}

	day := today()

	// เช็คก่อนเพื่อ message ที่ชัด — แต่ unique index คือตัวตัดสินจริงตอนแข่งกัน
	var cnt int64
	if err := database.DB.Model(&models.Attendance{}).
		Where("student_id = ? AND date = ?", uid, day).
		Count(&cnt).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error marking attendance.")
	}
	if cnt > 0 {
		return respondErr(c, http.StatusBadRequest, "Attendance already marked for today.")
	}

	rec := models.Attendance{
		StudentID: uid,
		Date:      day,
		Status:    status,
		CheckInAt: time.Now(),
		Remarks:   strings.TrimSpace(req.Remarks),
	}
	if err := database.DB.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondErr(c, http.StatusBadRequest, "Attendance already marked for today.")
		}
		return respondErr(c, http.StatusInternalServerError, "Error marking attendance.")
	}

	return respondOK(c, http.StatusCreated, "Attendance marked successfully.", map[string]any{"attendance": rec})
}

// GET /attendance — ประวัติของตัวเอง + stats
func (h *AttendanceHandler) ListMine(c echo.Context) error {
	uid, _ := currentUser(c)

	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))
	limit := atoiOr(c.QueryParam("limit"), 30)
	if limit < 1 || limit > 365 {
		limit = 30
	}

	tx := database.DB.Where("student_id = ?", uid)
	if start != "" {
		tx = tx.Where("date >= ?", start)
	}
	if end != "" {
		tx = tx.Where("date <= ?", end)
	}

	var rows []models.Attendance
	if err := tx.Order("date DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching attendance records.")
	}

	return respondOK(c, http.StatusOK, "", map[string]any{
		"attendance": rows,
		"stats":      computeStats(rows),
	})
}

/* ====================== Teacher ====================== */

// แถวที่ join users แล้ว สำหรับหน้า review ของครู
type attendanceRow struct {
	models.Attendance
	StudentName string `json:"student_name"`
	RollNumber  string `json:"roll_number"`
	Department  string `json:"department"`
}

// GET /attendance/all?start=&end=&statuses=present,late&studentId=&rollNumber=&q=&page=&limit=
// scope ตามแผนกของครู เว้นแต่ระบุ studentId เจาะจง
func (h *AttendanceHandler) ListAll(c echo.Context) error {
	dept := currentDepartment(c)

	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))
	statuses := strings.TrimSpace(c.QueryParam("statuses"))
	studentID := strings.TrimSpace(c.QueryParam("studentId"))
	rollNumber := strings.TrimSpace(c.QueryParam("rollNumber"))
	q := strings.TrimSpace(c.QueryParam("q"))

	page := atoiOr(c.QueryParam("page"), 1)
	limit := atoiOr(c.QueryParam("limit"), 100)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	tx := database.DB.Model(&models.Attendance{}).
		Joins("JOIN users u ON u.id = attendances.student_id").
		Where("u.role = ?", models.RoleStudent)

	if studentID != "" {
		tx = tx.Where("attendances.student_id = ?", studentID)
	} else {
		tx = tx.Where("u.department = ?", dept)
	}
	if start != "" {
		tx = tx.Where("attendances.date >= ?", start)
	}
	if end != "" {
		tx = tx.Where("attendances.date <= ?", end)
	}
	if statuses != "" {
		if parts := splitCSV(statuses); len(parts) > 0 {
			tx = tx.Where("attendances.status IN ?", parts)
		}
	}
	if rollNumber != "" {
		tx = tx.Where("u.roll_number = ?", rollNumber)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(u.name) LIKE ? OR LOWER(u.roll_number) LIKE ?", like, like)
	}

	// นับจาก session แยก ไม่ให้ clause ของ Count ติดไปกับ query หลัก
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching attendance records.")
	}

	var rows []attendanceRow
	if err := tx.Select("attendances.*, u.name AS student_name, u.roll_number, u.department").
		Order("attendances.date DESC, attendances.id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Scan(&rows).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching attendance records.")
	}

	pages := int(math.Ceil(float64(total) / float64(limit)))
	return respondOK(c, http.StatusOK, "", map[string]any{
		"attendance": rows,
		"count":      len(rows),
		"total":      total,
		"page":       page,
		"pages":      pages,
	})
}

// GET /attendance/stats?start=&end= — breakdown ตามสถานะ ในแผนกของครู
func (h *AttendanceHandler) Stats(c echo.Context) error {
	dept := currentDepartment(c)
	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))

	tx := database.DB.Model(&models.Attendance{}).
		Joins("JOIN users u ON u.id = attendances.student_id").
		Where("u.role = ? AND u.department = ?", models.RoleStudent, dept)
	if start != "" {
		tx = tx.Where("attendances.date >= ?", start)
	}
	if end != "" {
		tx = tx.Where("attendances.date <= ?", end)
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var breakdown []statusCount
	if err := tx.Select("attendances.status AS status, COUNT(*) AS count").
		Group("attendances.status").
		Scan(&breakdown).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching statistics.")
	}

	var total int64
	for _, b := range breakdown {
		total += b.Count
	}
	return respondOK(c, http.StatusOK, "", map[string]any{
		"total":     total,
		"breakdown": breakdown,
	})
}

// GET /attendance/students — รายชื่อนักเรียนในแผนก สำหรับหน้า bulk mark
func (h *AttendanceHandler) Students(c echo.Context) error {
	dept := currentDepartment(c)

	var students []models.User
	if err := database.DB.
		Where("role = ? AND department = ?", models.RoleStudent, dept).
		Order("roll_number ASC").
		Find(&students).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching students.")
	}

	out := make([]map[string]any, 0, len(students))
	for i := range students {
		out = append(out, userPayload(&students[i]))
	}
	return respondOK(c, http.StatusOK, "", map[string]any{
		"students": out,
		"count":    len(out),
	})
}

// POST /attendance/bulk — ครู mark ทีละหลายคน
// รายการที่มี record อยู่แล้วจะถูกเขียนทับ (ครูแก้ย้อนหลังได้) รายการใหม่สร้างเพิ่ม
// แต่ละรายการอิสระต่อกัน — ตัวที่พังไม่ล้มทั้งชุด
func (h *AttendanceHandler) BulkMark(c echo.Context) error {
	teacherID, _ := currentUser(c)
	dept := currentDepartment(c)

	var req bulkMarkReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "At least one entry is required.")
	}

	results := make([]bulkResult, 0, len(req.Entries))
	created, updated, failed := 0, 0, 0

	for _, e := range req.Entries {
		day := strings.TrimSpace(e.Date)
		if day == "" {
			day = today()
		} else if _, err := parseDate(day); err != nil {
			results = append(results, bulkResult{StudentID: e.StudentID, Date: e.Date, Outcome: "failed", Error: "invalid date"})
			failed++
			continue
		}
		if !models.ValidAttendanceStatus(e.Status) {
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "invalid status"})
			failed++
			continue
		}

		var student models.User
		if err := database.DB.Where("id = ? AND role = ?", e.StudentID, models.RoleStudent).First(&student).Error; err != nil {
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "student not found"})
			failed++
			continue
		}
		if student.Department != dept {
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "student not in your department"})
			failed++
			continue
		}

		var existing models.Attendance
		err := database.DB.Where("student_id = ? AND date = ?", e.StudentID, day).First(&existing).Error
		switch {
		case err == nil:
			// มีอยู่แล้ว → เขียนทับ ไม่ถือเป็น conflict ฝั่งครู
			upd := map[string]any{
				"status":       e.Status,
				"marked_by_id": teacherID,
				"check_in_at":  time.Now(),
			}
			if r := strings.TrimSpace(e.Remarks); r != "" {
				upd["remarks"] = r
			}
			if err := database.DB.Model(&existing).Updates(upd).Error; err != nil {
				results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "update failed"})
				failed++
				continue
			}
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "updated"})
			updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			tid := teacherID
			rec := models.Attendance{
				StudentID:  e.StudentID,
				Date:       day,
				Status:     e.Status,
				CheckInAt:  time.Now(),
				Remarks:    strings.TrimSpace(e.Remarks),
				MarkedByID: &tid,
			}
			if err := database.DB.Create(&rec).Error; err != nil {
				results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "create failed"})
				failed++
				continue
			}
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "created"})
			created++
		default:
			results = append(results, bulkResult{StudentID: e.StudentID, Date: day, Outcome: "failed", Error: "database error"})
			failed++
		}
	}

	return respondOK(c, http.StatusOK, "Bulk marking processed.", map[string]any{
		"results": results,
		"summary": map[string]int{"created": created, "updated": updated, "failed": failed},
	})
}
