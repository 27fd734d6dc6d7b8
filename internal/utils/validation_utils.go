package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidQuery is returned for blank or oversized queries
var ErrInvalidQuery = errors.New("invalid query")

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ValidateQuery trims a submitted query and checks it is usable
func ValidateQuery(query string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if maxLength > 0 && utf8.RuneCountInString(trimmed) > maxLength {
		return "", fmt.Errorf("%w: query exceeds %d characters", ErrInvalidQuery, maxLength)
	}
	return trimmed, nil
}

// ValidateAndParseUUID validates and parses UUID from string
func ValidateAndParseUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s cannot be empty", fieldName)
	}

	// Ensure UUID has proper format with hyphens
	if len(idStr) != 36 || strings.Count(idStr, "-") != 4 {
		return uuid.Nil, fmt.Errorf("invalid %s format", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format: %w", fieldName, err)
	}

	return id, nil
}

// NormalizePagination clamps page and page size to sane bounds
func NormalizePagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
