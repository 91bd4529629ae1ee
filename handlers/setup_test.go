package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Himanshuyadav6764/attendance-system/config"
	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

const testPassword = "secret123"

// เปิด sqlite in-memory แล้วชี้ database.DB ไปที่มันตลอดช่วง test
func setupDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: เป็นคนละ DB ต่อ connection — จำกัดไว้ตัวเดียว
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	database.DB = db
}

func testAuthHandler() *AuthHandler {
	return NewAuthHandler(&config.Config{JWTSecret: "test-secret", JWTExpireHours: 1})
}

func newContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// จำลองสิ่งที่ RequireAuth แนบไว้ใน context
func asUser(c echo.Context, u *models.User) {
	c.Set("user_id", u.ID)
	c.Set("role", u.Role)
	c.Set("name", u.Name)
	c.Set("department", u.Department)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", rec.Body.String())
	return data
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func createStudent(t *testing.T, name, email, roll, dept string) *models.User {
	t.Helper()
	u := models.User{
		Name:       name,
		Email:      email,
		Password:   mustHash(t, testPassword),
		Role:       models.RoleStudent,
		RollNumber: roll,
		Department: dept,
	}
	require.NoError(t, database.DB.Create(&u).Error)
	return &u
}

func createTeacher(t *testing.T, name, email, identifier, dept string) *models.User {
	t.Helper()
	u := models.User{
		Name:       name,
		Email:      email,
		Password:   mustHash(t, testPassword),
		Role:       models.RoleTeacher,
		TeacherID:  identifier,
		Department: dept,
	}
	require.NoError(t, database.DB.Create(&u).Error)
	return &u
}

func createIdentity(t *testing.T, identifier, name, dept string) *models.TeacherIdentity {
	t.Helper()
	rec := models.TeacherIdentity{Identifier: identifier, Name: name, Department: dept}
	require.NoError(t, database.DB.Create(&rec).Error)
	return &rec
}

func day(offset int) string {
	return time.Now().AddDate(0, 0, offset).Format(dateLayout)
}
