package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, success bool, data interface{}, errMsg string) {
	ctx.JSON(status, JSONResponse{
		Success: success,
		Data:    data,
		Error:   errMsg,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, true, data, "")
}

// Error returns a standard failure response.
func Error(ctx *gin.Context, status int, message string) {
	Respond(ctx, status, false, nil, message)
}
