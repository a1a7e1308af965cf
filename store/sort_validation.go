package store

import "strings"

// LeadSortFields are the columns the admin listing may order by.
var LeadSortFields = map[string]bool{
	"name":       true,
	"email":      true,
	"created_at": true,
}

// ValidateSortOrder normalizes order to ASC or DESC, defaulting to ASC.
func ValidateSortOrder(order string) string {
	if strings.ToUpper(strings.TrimSpace(order)) == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField returns field when it is allowed and defaultField otherwise.
func ValidateSortField(field string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.ToLower(strings.TrimSpace(field))
	if trimmed == "" {
		return defaultField
	}
	if allowed[trimmed] {
		return trimmed
	}
	return defaultField
}
