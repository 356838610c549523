package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the current status of a dispatch job.
type JobStatus string

const (
	JobStatusUnassigned     JobStatus = "UNASSIGNED"
	JobStatusOffered        JobStatus = "OFFERED"
	JobStatusAssigned       JobStatus = "ASSIGNED"
	JobStatusEscalated      JobStatus = "ESCALATED"
	JobStatusManualRequired JobStatus = "MANUAL_REQUIRED"
)

// Open reports whether the job is still eligible for automatic matching.
func (s JobStatus) Open() bool {
	switch s {
	case JobStatusUnassigned, JobStatusOffered, JobStatusEscalated:
		return true
	}
	return false
}

// Job represents a delivery awaiting courier assignment.
type Job struct {
	ID                string
	PickupLat         float64
	PickupLng         float64
	DropLat           float64
	DropLng           float64
	BaseFee           decimal.Decimal
	Tip               decimal.Decimal
	Status            JobStatus
	AssignedCourierID string
	CreatedAt         time.Time
	AssignedAt        time.Time
}
