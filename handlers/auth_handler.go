package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Himanshuyadav6764/attendance-system/config"
	"github.com/Himanshuyadav6764/attendance-system/database"
	"github.com/Himanshuyadav6764/attendance-system/models"
)

/* ====================== Config & Helpers ====================== */

type AuthHandler struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
}

func (h *AuthHandler) signJWT(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":        u.ID,
		"role":       u.Role,
		"name":       u.Name,
		"department": u.Department,
		"jti":        uuid.NewString(),
		"exp":        time.Now().Add(h.TokenTTL).Unix(),
		"iat":        time.Now().Unix(),
	}
	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tk.SignedString([]byte(h.JWTSecret))
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// รูป user ที่ส่งกลับ FE (ไม่มี hash แน่นอน เพราะ json:"-" อยู่แล้ว แต่คุมฟิลด์ให้นิ่ง)
func userPayload(u *models.User) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"teacher_id":  u.TeacherID,
		"roll_number": u.RollNumber,
		"department":  u.Department,
	}
}

/* ====================== DTOs ====================== */

type registerReq struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role"`
	RollNumber string `json:"roll_number"`
	TeacherID  string `json:"teacher_id"`
	Department string `json:"department"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"` // email (student) หรือ Teacher ID (teacher)
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type validateTeacherIDReq struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

type updateProfileReq struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

/* ====================== Handlers ====================== */

// POST /auth/validate-teacher-id
// เช็คก่อนสมัครว่ารหัสครูมีจริงและยังไม่ถูก claim — FE ใช้ pre-fill แผนกให้
func (h *AuthHandler) ValidateTeacherID(c echo.Context) error {
	var req validateTeacherIDReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Teacher ID is required.")
	}

	var identity models.TeacherIdentity
	err := database.DB.Where("identifier = ?", strings.TrimSpace(req.TeacherID)).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{
				"success": false,
				"message": "Invalid Teacher ID.",
				"data":    map[string]any{"valid": false},
			})
		}
		return respondErr(c, http.StatusInternalServerError, "Server error.")
	}

	if identity.IsClaimed {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "This Teacher ID is already registered.",
			"data":    map[string]any{"valid": false, "already_registered": true},
		})
	}

	return respondOK(c, http.StatusOK, "Valid Teacher ID.", map[string]any{
		"valid":              true,
		"department":         identity.Department,
		"already_registered": false,
	})
}

// POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.Department = strings.TrimSpace(req.Department)

	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Email and a password of at least 6 characters are required.")
	}

	switch req.Role {
	case "", models.RoleStudent:
		return h.registerStudent(c, &req)
	case models.RoleTeacher:
		return h.registerTeacher(c, &req)
	default:
		return respondErr(c, http.StatusBadRequest, "Invalid role.")
	}
}

func (h *AuthHandler) registerStudent(c echo.Context, req *registerReq) error {
	if req.Name == "" {
		return respondErr(c, http.StatusBadRequest, "Name is required for students.")
	}
	if req.RollNumber == "" {
		return respondErr(c, http.StatusBadRequest, "Roll number is required for students.")
	}

	var cnt int64
	if err := database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&cnt).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}
	if cnt > 0 {
		return respondErr(c, http.StatusBadRequest, "This email is already registered. Please use a different email.")
	}

	// roll number ซ้ำได้เฉพาะข้ามบทบาท — ในกลุ่ม student ต้อง unique
	if err := database.DB.Model(&models.User{}).
		Where("roll_number = ? AND role = ?", req.RollNumber, models.RoleStudent).
		Count(&cnt).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}
	if cnt > 0 {
		return respondErr(c, http.StatusBadRequest, "This roll number is already taken. Please use a different one.")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}

	u := models.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   hash,
		Role:       models.RoleStudent,
		RollNumber: req.RollNumber,
		Department: req.Department,
	}
	if err := database.DB.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondErr(c, http.StatusBadRequest, "This email is already registered. Please use a different email.")
		}
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}

	token, err := h.signJWT(&u)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to generate token.")
	}
	return respondOK(c, http.StatusCreated, "Student account created successfully!", map[string]any{
		"user":  userPayload(&u),
		"token": token,
	})
}

var errIdentityClaimed = errors.New("identity already claimed")

func (h *AuthHandler) registerTeacher(c echo.Context, req *registerReq) error {
	if req.TeacherID == "" {
		return respondErr(c, http.StatusBadRequest, "Teacher ID is required for teacher registration.")
	}
	if req.Department == "" {
		return respondErr(c, http.StatusBadRequest, "Department is required for teacher registration.")
	}

	var identity models.TeacherIdentity
	if err := database.DB.Where("identifier = ?", req.TeacherID).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondErr(c, http.StatusBadRequest, "Teacher ID not found. Please contact admin for the correct Teacher ID.")
		}
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}
	if identity.Department != req.Department {
		return respondErr(c, http.StatusBadRequest, "Teacher ID and department do not match. Please check your details.")
	}
	if identity.IsClaimed {
		return respondErr(c, http.StatusBadRequest, "This Teacher ID is already registered.")
	}

	var cnt int64
	if err := database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&cnt).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}
	if cnt > 0 {
		return respondErr(c, http.StatusBadRequest, "This email is already registered. Please use a different email.")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}

	// สร้าง user + claim identity ใน transaction เดียว — ห้ามเกิดสถานะครึ่งทาง
	// (identity ถูก claim แต่ไม่มี user หรือมี user แต่ identity ยังว่าง)
	u := models.User{
		Name:       identity.Name, // ใช้ชื่อที่ admin ตั้งไว้ล่วงหน้า
		Email:      req.Email,
		Password:   hash,
		Role:       models.RoleTeacher,
		TeacherID:  identity.Identifier,
		Department: identity.Department,
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		// เงื่อนไข is_claimed = false กันสอง request แข่งกัน claim รหัสเดียว
		res := tx.Model(&models.TeacherIdentity{}).
			Where("id = ? AND is_claimed = ?", identity.ID, false).
			Updates(map[string]any{
				"password":           hash,
				"is_claimed":         true,
				"claimed_by_user_id": u.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errIdentityClaimed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errIdentityClaimed) {
			return respondErr(c, http.StatusBadRequest, "This Teacher ID is already registered.")
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondErr(c, http.StatusBadRequest, "This email is already registered. Please use a different email.")
		}
		return respondErr(c, http.StatusInternalServerError, "Failed to create account. Please try again.")
	}

	token, err := h.signJWT(&u)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to generate token.")
	}
	return respondOK(c, http.StatusCreated, "Teacher account registered successfully! You can now login with your Teacher ID.", map[string]any{
		"user":  userPayload(&u),
		"token": token,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Please enter both email/Teacher ID and password.")
	}

	var u models.User
	if req.Role == models.RoleTeacher {
		// Teacher: ตรวจรหัสผ่านกับ TeacherIdentity ตาม Teacher ID แล้วค่อยโหลด user ที่ผูกกัน
		var identity models.TeacherIdentity
		if err := database.DB.Where("identifier = ?", req.Email).First(&identity).Error; err != nil || identity.Password == "" {
			return respondErr(c, http.StatusUnauthorized, "Invalid Teacher ID or password.")
		}
		if bcrypt.CompareHashAndPassword([]byte(identity.Password), []byte(req.Password)) != nil {
			return respondErr(c, http.StatusUnauthorized, "Invalid Teacher ID or password.")
		}
		if err := database.DB.Where("teacher_id = ? AND role = ?", req.Email, models.RoleTeacher).First(&u).Error; err != nil {
			return respondErr(c, http.StatusUnauthorized, "Invalid Teacher ID or password.")
		}
	} else {
		// Student: login ด้วย email
		email := strings.ToLower(req.Email)
		if err := database.DB.Where("email = ? AND role = ?", email, models.RoleStudent).First(&u).Error; err != nil {
			return respondErr(c, http.StatusUnauthorized, "Invalid email or password.")
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
			return respondErr(c, http.StatusUnauthorized, "Invalid email or password.")
		}
	}

	token, err := h.signJWT(&u)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to generate token.")
	}
	return respondOK(c, http.StatusOK, "Login successful! Welcome back!", map[string]any{
		"user":  userPayload(&u),
		"token": token,
	})
}

// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := currentUser(c)
	var u models.User
	if err := database.DB.First(&u, uid).Error; err != nil {
		return respondErr(c, http.StatusNotFound, "User not found.")
	}
	return respondOK(c, http.StatusOK, "", map[string]any{"user": userPayload(&u)})
}

// PUT /auth/profile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, _ := currentUser(c)

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Department = strings.TrimSpace(req.Department)

	var u models.User
	if err := database.DB.First(&u, uid).Error; err != nil {
		return respondErr(c, http.StatusNotFound, "User not found.")
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" && req.Email != u.Email {
		var cnt int64
		if err := database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&cnt).Error; err != nil {
			return respondErr(c, http.StatusInternalServerError, "Failed to update profile. Please try again.")
		}
		if cnt > 0 {
			return respondErr(c, http.StatusBadRequest, "This email is already in use.")
		}
		updates["email"] = req.Email
	}
	if req.Department != "" {
		updates["department"] = req.Department
	}
	if len(updates) == 0 {
		return respondErr(c, http.StatusBadRequest, "Nothing to update.")
	}

	if err := database.DB.Model(&u).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondErr(c, http.StatusBadRequest, "This email is already in use.")
		}
		return respondErr(c, http.StatusInternalServerError, "Failed to update profile. Please try again.")
	}
	return respondOK(c, http.StatusOK, "Profile updated successfully!", map[string]any{"user": userPayload(&u)})
}

// PUT /auth/password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, _ := currentUser(c)

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request payload.")
	}
	if err := validate.Struct(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "New password must be at least 6 characters long.")
	}

	var u models.User
	if err := database.DB.First(&u, uid).Error; err != nil {
		return respondErr(c, http.StatusNotFound, "User not found.")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.CurrentPassword)) != nil {
		return respondErr(c, http.StatusUnauthorized, "Current password is incorrect.")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to change password. Please try again.")
	}
	updates := map[string]any{"password": hash}
	if err := database.DB.Model(&u).Updates(updates).Error; err != nil {
		return respondErr(c, http.StatusInternalServerError, "Failed to change password. Please try again.")
	}

	// ครูเก็บรหัสไว้ที่ identity ด้วย — ต้องเปลี่ยนตามกัน ไม่งั้น login ด้วยรหัสเก่าได้
	if u.Role == models.RoleTeacher && u.TeacherID != "" {
		if err := database.DB.Model(&models.TeacherIdentity{}).
			Where("identifier = ?", u.TeacherID).
			Update("password", hash).Error; err != nil {
			return respondErr(c, http.StatusInternalServerError, "Failed to change password. Please try again.")
		}
	}

	return respondOK(c, http.StatusOK, "Password changed successfully!", nil)
}
