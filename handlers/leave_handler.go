package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

type LeaveHandler struct{}

func NewLeaveHandler() *LeaveHandler { return &LeaveHandler{} }

/* ====================== DTOs ====================== */

type applyLeaveReq struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type reviewLeaveReq struct {
	Status  string `json:"status" validate:"required"` // approved | rejected
	Remarks string `json:"remarks"`
}

func leavePayload(l *models.LeaveApplication) map[string]any {
	return map[string]any{
		"id":               l.ID,
		"student_id":       l.StudentID,
		"start_date":       l.StartDate,
		"end_date":         l.EndDate,
		"duration":         l.Duration(),
		"reason":           l.Reason,
		"status":           l.Status,
		"reviewer_remarks": l.ReviewerRemarks,
		"reviewed_by_id":   l.ReviewedByID,
		"reviewed_at":      l.ReviewedAt,
		"created_at":       l.CreatedAt,
	}
}

/* ====================== Student ====================== */

// POST /leave
func (h *LeaveHandler) Apply(c echo.Context) error {
	uid, _ := currentUser(c)

	var req applyLeaveReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Please provide start date, end date, and reason.")
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid start date.")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid end date.")
	}
	if start.After(end) {
		return respondErr(c, http.StatusBadRequest, "Start date cannot be after end date.")
	}
	todayMidnight, _ := parseDate(today())
	if start.Before(todayMidnight) {
		return respondErr(c, http.StatusBadRequest, "Cannot apply for leave in the past.")
	}

	leave := models.LeaveApplication{
		StudentID: uid,
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Reason:    req.Reason,
		Status:    models.LeavePending,
	}
	if err := database.DB.Create(&leave).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error applying for leave.")
	}

	return respondOK(c, http.StatusCreated, "Leave application submitted successfully.", map[string]any{
		"leave": leavePayload(&leave),
	})
}

// GET /leave — ใบลาของตัวเอง + stats
func (h *LeaveHandler) ListMine(c echo.Context) error {
	uid, _ := currentUser(c)

	status := strings.TrimSpace(c.QueryParam("status"))
	limit := atoiOr(c.QueryParam("limit"), 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	tx := database.DB.Where("student_id = ?", uid)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	var rows []models.LeaveApplication
	if err := tx.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching leave records.")
	}

	stats := map[string]int{"total": len(rows), "pending": 0, "approved": 0, "rejected": 0}
	out := make([]map[string]any, 0, len(rows))
	for i := range rows {
		stats[rows[i].Status]++
		out = append(out, leavePayload(&rows[i]))
	}

	return respondOK(c, http.StatusOK, "", map[string]any{
		"leaves": out,
		"stats":  stats,
	})
}

// DELETE /leave/:id — ลบได้เฉพาะของตัวเองและยัง pending
func (h *LeaveHandler) Delete(c echo.Context) error {
	uid, _ := currentUser(c)
	id := c.Param("id")

	var leave models.LeaveApplication
	if err := database.DB.First(&leave, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondErr(c, http.StatusNotFound, "Leave application not found.")
		}
		return respondErr(c, http.StatusInternalServerError, "Error deleting leave application.")
	}

	if leave.StudentID != uid {
		return respondErr(c, http.StatusForbidden, "Access denied. You can only delete your own leave applications.")
	}
	if leave.Status != models.LeavePending {
		return respondErr(c, http.StatusBadRequest, "Cannot delete leave application that is already processed.")
	}

	if err := database.DB.Delete(&leave).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error deleting leave application.")
	}
	return respondOK(c, http.StatusOK, "Leave application deleted successfully.", nil)
}

/* ====================== Teacher ====================== */

type leaveRow struct {
	models.LeaveApplication
	StudentName string `json:"student_name"`
	RollNumber  string `json:"roll_number"`
	Department  string `json:"department"`
}

// GET /leave/all?status=&studentId=&page=&limit= — คิวตรวจของครู scope ตามแผนก
// เรียง pending ขึ้นก่อนเสมอ แล้วค่อยใหม่→เก่า
func (h *LeaveHandler) ListAll(c echo.Context) error {
	dept := currentDepartment(c)

	status := strings.TrimSpace(c.QueryParam("status"))
	studentID := strings.TrimSpace(c.QueryParam("studentId"))
	page := atoiOr(c.QueryParam("page"), 1)
	limit := atoiOr(c.QueryParam("limit"), 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	tx := database.DB.Model(&models.LeaveApplication{}).
		Joins("JOIN users u ON u.id = leave_applications.student_id").
		Where("u.role = ?", models.RoleStudent)

	if studentID != "" {
		tx = tx.Where("leave_applications.student_id = ?", studentID)
	} else {
		tx = tx.Where("u.department = ?", dept)
	}
	if status != "" {
		tx = tx.Where("leave_applications.status = ?", status)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching leave records.")
	}

	var rows []leaveRow
	if err := tx.Select("leave_applications.*, u.name AS student_name, u.roll_number, u.department").
		Order("CASE WHEN leave_applications.status = 'pending' THEN 0 ELSE 1 END, leave_applications.created_at DESC, leave_applications.id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Scan(&rows).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error fetching leave records.")
	}

	out := make([]map[string]any, 0, len(rows))
	for i := range rows {
		p := leavePayload(&rows[i].LeaveApplication)
		p["student_name"] = rows[i].StudentName
		p["roll_number"] = rows[i].RollNumber
		p["department"] = rows[i].Department
		out = append(out, p)
	}

	return respondOK(c, http.StatusOK, "", map[string]any{
		"leaves": out,
		"count":  len(out),
		"total":  total,
		"page":   page,
	})
}

// PATCH /leave/:id — อนุมัติ/ปฏิเสธ ได้ครั้งเดียว pending เท่านั้น
func (h *LeaveHandler) Review(c echo.Context) error {
	teacherID, _ := currentUser(c)
	dept := currentDepartment(c)
	id := c.Param("id")

	var req reviewLeaveReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status != models.LeaveApproved && req.Status != models.LeaveRejected {
		return respondErr(c, http.StatusBadRequest, "Please provide valid status (approved or rejected).")
	}

	var leave models.LeaveApplication
	if err := database.DB.First(&leave, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondErr(c, http.StatusNotFound, "Leave application not found.")
		}
		return respondErr(c, http.StatusInternalServerError, "Error updating leave application.")
	}

	// ครูตรวจได้เฉพาะนักเรียนในแผนกตัวเอง
	var student models.User
	if err := database.DB.First(&student, leave.StudentID).Error; err != nil || student.Department != dept {
		return respondErr(c, http.StatusForbidden, "Access denied. You can only review leave applications in your department.")
	}

	if leave.Status != models.LeavePending {
		return respondErr(c, http.StatusBadRequest, "Leave application is already "+leave.Status+".")
	}

	now := time.Now()
	updates := map[string]any{
		"status":           req.Status,
		"reviewer_remarks": strings.TrimSpace(req.Remarks),
		"reviewed_by_id":   teacherID,
		"reviewed_at":      &now,
	}
	// เงื่อนไข status = pending กันสอง request ตัดสินใบเดียวกันพร้อมกัน
	res := database.DB.Model(&models.LeaveApplication{}).
		Where("id = ? AND status = ?", leave.ID, models.LeavePending).
		Updates(updates)
	if res.Error != nil {
		return respondErr(c, http.StatusInternalServerError, "Error updating leave application.")
	}
	if res.RowsAffected == 0 {
		return respondErr(c, http.StatusBadRequest, "Leave application is already processed.")
	}

	if err := database.DB.First(&leave, leave.ID).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Error updating leave application.")
	}
	return respondOK(c, http.StatusOK, "Leave application "+req.Status+" successfully.", map[string]any{
		"leave": leavePayload(&leave),
	})
}
