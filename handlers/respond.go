package handlers

import "github.com/labstack/echo/v4"

// รูปแบบ response เดียวกันทุก endpoint: { success, message?, data? }

func respondOK(c echo.Context, code int, message string, data any) error {
	body := map[string]any{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(code, body)
}

func respondErr(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]any{"success": false, "message": message})
}
