package models

import "time"

// LeadSource tells which website form produced a lead.
type LeadSource string

const (
	SourcePropertyInquiry LeadSource = "property_inquiry"
	SourceContact         LeadSource = "contact"
)

// Column widths shared by the schema and the ingestion clipping.
const (
	NameMaxLen          = 255
	PhoneMaxLen         = 15
	EmailMaxLen         = 150
	PropertyIDMaxLen    = 45
	PropertyTitleMaxLen = 255
	PropertyPriceMaxLen = 45
)

// Lead is a captured website form submission. Rows are never updated in place.
type Lead struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"size:255;not null" validate:"required,max=255"`
	Phone         string     `json:"phone" gorm:"size:15;not null" validate:"required,max=15"`
	Email         string     `json:"email" gorm:"size:150;not null;uniqueIndex" validate:"required,email,max=150"`
	Message       *string    `json:"message,omitempty" gorm:"type:text"`
	PropertyID    *string    `json:"property_id,omitempty" gorm:"size:45" validate:"omitempty,max=45"`
	PropertyTitle *string    `json:"property_title,omitempty" gorm:"size:255" validate:"omitempty,max=255"`
	PropertyPrice *string    `json:"property_price,omitempty" gorm:"size:45" validate:"omitempty,max=45"`
	Source        LeadSource `json:"source" gorm:"size:45" validate:"oneof=property_inquiry contact"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Value returns the dereferenced string or "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
