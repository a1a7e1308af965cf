package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ConnectorPipedrive = "pipedrive"
	ConnectorRDStation = "rdstation"

	DeliverySucceeded = "succeeded"
	DeliveryFailed    = "failed"
)

// Delivery records one forwarding attempt of a lead to an external system.
type Delivery struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Connector  string         `json:"connector" gorm:"size:32;index"`
	Email      string         `json:"email" gorm:"size:150;index"`
	Source     LeadSource     `json:"source" gorm:"size:45"`
	Status     string         `json:"status" gorm:"size:16;index"`
	ExternalID string         `json:"external_id,omitempty" gorm:"size:64"`
	Error      string         `json:"error,omitempty" gorm:"type:text"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}
