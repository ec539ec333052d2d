package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/medscribe/medscribe-api/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Detail       string
}
