package models

import (
	"time"

	"github.com/google/uuid"
)

type ComplaintCategory string

const (
	CategoryProduct   ComplaintCategory = "Product"
	CategoryService   ComplaintCategory = "Service"
	CategorySupport   ComplaintCategory = "Support"
	CategoryTechnical ComplaintCategory = "Technical"
	CategoryBilling   ComplaintCategory = "Billing"
)

func (c ComplaintCategory) IsValid() bool {
	switch c {
	case CategoryProduct, CategoryService, CategorySupport, CategoryTechnical, CategoryBilling:
		return true
	}
	return false
}

type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "Low"
	PriorityMedium ComplaintPriority = "Medium"
	PriorityHigh   ComplaintPriority = "High"
)

func (p ComplaintPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "In Progress"
	StatusResolved   ComplaintStatus = "Resolved"
)

func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Complaint is the protected resource behind the token check.
type Complaint struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    ComplaintCategory `json:"category"`
	Priority    ComplaintPriority `json:"priority"`
	Status      ComplaintStatus   `json:"status"`
	SubmittedBy uuid.UUID         `json:"submitted_by"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
