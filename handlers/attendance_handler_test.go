package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

func TestMarkSelfOncePerDay(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	stu := createStudent(t, "Anita Rao", "anita@example.com", "CS-042", "Computer Science")

	c, rec := newContext(t, http.MethodPost, "/attendance", `{"status":"present","remarks":"on time"}`)
	asUser(c, stu)
	require.NoError(t, h.Mark(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// ครั้งที่สองในวันเดียวกันต้อง conflict เสมอ
	c, rec = newContext(t, http.MethodPost, "/attendance", `{"status":"late"}`)
	asUser(c, stu)
	require.NoError(t, h.Mark(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already marked")

	var cnt int64
	require.NoError(t, database.DB.Model(&models.Attendance{}).
		Where("student_id = ?", stu.ID).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)
}

func TestMarkDefaultsAndValidation(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	stu := createStudent(t, "Anita Rao", "anita@example.com", "CS-042", "Computer Science")

	// ไม่ส่ง status → present
	c, rec := newContext(t, http.MethodPost, "/attendance", `{}`)
	asUser(c, stu)
	require.NoError(t, h.Mark(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var rows []models.Attendance
	require.NoError(t, database.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusPresent, rows[0].Status)
	assert.Nil(t, rows[0].MarkedByID)

	// status นอกเหนือ present/absent/late
	c, rec = newContext(t, http.MethodPost, "/attendance", `{"status":"vacation"}`)
	asUser(c, stu)
	require.NoError(t, h.Mark(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMineWithStats(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	stu := createStudent(t, "Anita Rao", "anita@example.com", "CS-042", "Computer Science")

	for i, status := range []string{models.StatusPresent, models.StatusPresent, models.StatusLate, models.StatusAbsent} {
		rec := models.Attendance{StudentID: stu.ID, Date: day(-i), Status: status, CheckInAt: time.Now()}
		require.NoError(t, database.DB.Create(&rec).Error)
	}

	c, rec := newContext(t, http.MethodGet, "/attendance", "")
	asUser(c, stu)
	require.NoError(t, h.ListMine(c))
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataOf(t, rec)
	stats := data["stats"].(map[string]any)
	assert.EqualValues(t, 4, stats["total"])
	assert.EqualValues(t, 2, stats["present"])
	assert.EqualValues(t, 1, stats["late"])
	assert.EqualValues(t, 1, stats["absent"])
	assert.EqualValues(t, 50, stats["rate"]) // 2/4 → 50%
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Rate)
}

func TestBulkMarkPartialFailure(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	a := createStudent(t, "Student A", "a@example.com", "CS-001", "Computer Science")
	b := createStudent(t, "Student B", "b@example.com", "CS-002", "Computer Science")
	other := createStudent(t, "Outsider", "o@example.com", "ME-001", "Mechanical")

	// A มี record ของวันนี้อยู่แล้ว (mark เองไว้เป็น present)
	existing := models.Attendance{StudentID: a.ID, Date: day(0), Status: models.StatusPresent, CheckInAt: time.Now()}
	require.NoError(t, database.DB.Create(&existing).Error)

	body := fmt.Sprintf(`{"entries":[
		{"student_id":%d,"status":"absent"},
		{"student_id":%d,"status":"late"},
		{"student_id":99999,"status":"present"},
		{"student_id":%d,"status":"present"}
	]}`, a.ID, b.ID, other.ID)

	c, rec := newContext(t, http.MethodPost, "/attendance/bulk", body)
	asUser(c, teacher)
	require.NoError(t, h.BulkMark(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := dataOf(t, rec)
	summary := data["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["created"])
	assert.EqualValues(t, 1, summary["updated"])
	assert.EqualValues(t, 2, summary["failed"])

	// A ถูกเขียนทับ record เดิม ไม่ใช่สร้างแถวใหม่
	var aRows []models.Attendance
	require.NoError(t, database.DB.Where("student_id = ? AND date = ?", a.ID, day(0)).Find(&aRows).Error)
	require.Len(t, aRows, 1)
	assert.Equal(t, models.StatusAbsent, aRows[0].Status)
	require.NotNil(t, aRows[0].MarkedByID)
	assert.Equal(t, teacher.ID, *aRows[0].MarkedByID)

	// B ได้ record ใหม่
	var bRows []models.Attendance
	require.NoError(t, database.DB.Where("student_id = ?", b.ID).Find(&bRows).Error)
	require.Len(t, bRows, 1)
	assert.Equal(t, models.StatusLate, bRows[0].Status)

	// นักเรียนต่างแผนกต้องไม่ถูก mark
	var cnt int64
	require.NoError(t, database.DB.Model(&models.Attendance{}).
		Where("student_id = ?", other.ID).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestBulkMarkInvalidEntries(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	a := createStudent(t, "Student A", "a@example.com", "CS-001", "Computer Science")

	body := fmt.Sprintf(`{"entries":[
		{"student_id":%d,"status":"present","date":"not-a-date"},
		{"student_id":%d,"status":"sleeping"}
	]}`, a.ID, a.ID)

	c, rec := newContext(t, http.MethodPost, "/attendance/bulk", body)
	asUser(c, teacher)
	require.NoError(t, h.BulkMark(c))
	require.Equal(t, http.StatusOK, rec.Code)

	summary := dataOf(t, rec)["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["failed"])

	// entries ว่าง → 400
	c, rec = newContext(t, http.MethodPost, "/attendance/bulk", `{"entries":[]}`)
	asUser(c, teacher)
	require.NoError(t, h.BulkMark(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAllDepartmentScope(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	cs := createStudent(t, "CS Student", "cs@example.com", "CS-001", "Computer Science")
	me := createStudent(t, "ME Student", "me@example.com", "ME-001", "Mechanical")

	require.NoError(t, database.DB.Create(&models.Attendance{StudentID: cs.ID, Date: day(0), Status: models.StatusPresent, CheckInAt: time.Now()}).Error)
	require.NoError(t, database.DB.Create(&models.Attendance{StudentID: me.ID, Date: day(0), Status: models.StatusPresent, CheckInAt: time.Now()}).Error)

	// default: เห็นเฉพาะแผนกตัวเอง
	c, rec := newContext(t, http.MethodGet, "/attendance/all", "")
	asUser(c, teacher)
	require.NoError(t, h.ListAll(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.EqualValues(t, 1, data["total"])
	rows := data["attendance"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "CS Student", rows[0].(map[string]any)["student_name"])

	// ระบุ studentId เจาะจง → ข้าม scope แผนกได้
	c, rec = newContext(t, http.MethodGet, fmt.Sprintf("/attendance/all?studentId=%d", me.ID), "")
	asUser(c, teacher)
	require.NoError(t, h.ListAll(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, dataOf(t, rec)["total"])
}

func TestListAllFilters(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	cs := createStudent(t, "CS Student", "cs@example.com", "CS-001", "Computer Science")

	for i, status := range []string{models.StatusPresent, models.StatusLate, models.StatusAbsent} {
		require.NoError(t, database.DB.Create(&models.Attendance{StudentID: cs.ID, Date: day(-i), Status: status, CheckInAt: time.Now()}).Error)
	}

	// filter ด้วย statuses CSV
	c, rec := newContext(t, http.MethodGet, "/attendance/all?statuses=present,late", "")
	asUser(c, teacher)
	require.NoError(t, h.ListAll(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, dataOf(t, rec)["total"])

	// filter ช่วงวัน — เอาเฉพาะวันนี้
	c, rec = newContext(t, http.MethodGet, fmt.Sprintf("/attendance/all?start=%s&end=%s", day(0), day(0)), "")
	asUser(c, teacher)
	require.NoError(t, h.ListAll(c))
	assert.EqualValues(t, 1, dataOf(t, rec)["total"])

	// filter roll number
	c, rec = newContext(t, http.MethodGet, "/attendance/all?rollNumber=CS-001", "")
	asUser(c, teacher)
	require.NoError(t, h.ListAll(c))
	assert.EqualValues(t, 3, dataOf(t, rec)["total"])
}

func TestStatsBreakdown(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	cs := createStudent(t, "CS Student", "cs@example.com", "CS-001", "Computer Science")
	me := createStudent(t, "ME Student", "me@example.com", "ME-001", "Mechanical")

	for i, status := range []string{models.StatusPresent, models.StatusPresent, models.StatusLate} {
		require.NoError(t, database.DB.Create(&models.Attendance{StudentID: cs.ID, Date: day(-i), Status: status, CheckInAt: time.Now()}).Error)
	}
	// ต่างแผนก ไม่ควรติดมา
	require.NoError(t, database.DB.Create(&models.Attendance{StudentID: me.ID, Date: day(0), Status: models.StatusAbsent, CheckInAt: time.Now()}).Error)

	c, rec := newContext(t, http.MethodGet, "/attendance/stats", "")
	asUser(c, teacher)
	require.NoError(t, h.Stats(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := dataOf(t, rec)
	assert.EqualValues(t, 3, data["total"])
	counts := map[string]float64{}
	for _, item := range data["breakdown"].([]any) {
		m := item.(map[string]any)
		counts[m["status"].(string)] = m["count"].(float64)
	}
	assert.EqualValues(t, 2, counts[models.StatusPresent])
	assert.EqualValues(t, 1, counts[models.StatusLate])
	assert.Zero(t, counts[models.StatusAbsent])
}

func TestStudentsRoster(t *testing.T) {
	setupDB(t)
	h := NewAttendanceHandler()
	teacher := createTeacher(t, "Dr. Sarah Johnson", "sarah@example.com", "TCH_CSE_001", "Computer Science")
	createStudent(t, "B Student", "b@example.com", "CS-002", "Computer Science")
	createStudent(t, "A Student", "a@example.com", "CS-001", "Computer Science")
	createStudent(t, "ME Student", "me@example.com", "ME-001", "Mechanical")

	c, rec := newContext(t, http.MethodGet, "/attendance/students", "")
	asUser(c, teacher)
	require.NoError(t, h.Students(c))
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataOf(t, rec)
	assert.EqualValues(t, 2, data["count"])
	students := data["students"].([]any)
	// เรียงตาม roll number
	assert.Equal(t, "CS-001", students[0].(map[string]any)["roll_number"])
	assert.Equal(t, "CS-002", students[1].(map[string]any)["roll_number"])
}
