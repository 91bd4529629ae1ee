package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/Himanshuyadav6764/attendance-system/config"
	"github.com/Himanshuyadav6764/attendance-system/handlers"
	"github.com/Himanshuyadav6764/attendance-system/middlewares"
)

// Register wires all HTTP routes.
func Register(e *echo.Echo, cfg *config.Config) {
	// ===== Handlers (shared singletons) =====
	auth := handlers.NewAuthHandler(cfg)
	att := handlers.NewAttendanceHandler()
	lv := handlers.NewLeaveHandler()

	e.GET("/health", handlers.Health)

	// ===== Public Auth =====
	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)
	e.POST("/auth/validate-teacher-id", auth.ValidateTeacherID)

	// ===== Protected Groups =====
	authMW := middlewares.RequireAuth(cfg.JWTSecret)

	me := e.Group("/auth", authMW)
	me.GET("/me", auth.Me)
	me.PUT("/profile", auth.UpdateProfile)
	me.PUT("/password", auth.ChangePassword)

	// ===== Attendance =====
	a := e.Group("/attendance", authMW)
	a.POST("", att.Mark, middlewares.RequireRole("student"))
	a.GET("", att.ListMine, middlewares.RequireRole("student"))
	a.GET("/all", att.ListAll, middlewares.RequireRole("teacher"))
	a.GET("/stats", att.Stats, middlewares.RequireRole("teacher"))
	a.GET("/students", att.Students, middlewares.RequireRole("teacher"))
	a.POST("/bulk", att.BulkMark, middlewares.RequireRole("teacher"))

	// ===== Leave =====
	l := e.Group("/leave", authMW)
	l.POST("", lv.Apply, middlewares.RequireRole("student"))
	l.GET("", lv.ListMine, middlewares.RequireRole("student"))
	l.GET("/all", lv.ListAll, middlewares.RequireRole("teacher"))
	l.PATCH("/:id", lv.Review, middlewares.RequireRole("teacher"))
	l.DELETE("/:id", lv.Delete, middlewares.RequireRole("student"))
}
