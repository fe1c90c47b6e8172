package server

import (
	"github.com/gin-gonic/gin"
)

const (
	ErrorBadRequest       = "BAD_REQUEST"
	ErrorSessionBusy      = "SESSION_BUSY"
	ErrorNoDocuments      = "NO_DOCUMENTS"
	ErrorBlankSentence    = "BLANK_SENTENCE"
	ErrorFileNotFound     = "FILE_NOT_FOUND"
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorUploadTooLarge   = "UPLOAD_TOO_LARGE"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, APIResponse{Success: false, Error: &APIError{Code: code, Message: message}})
}
