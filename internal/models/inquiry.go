package models

import (
	"fmt"
	"time"
)

// InquiryCollection is the collection inquiries are written to.
const InquiryCollection = "inquiry"

// InquiryInput is the body accepted by POST /api/inquiries.
type InquiryInput struct {
	PlannerID  *string `json:"planner_id"`
	Name       string  `json:"name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone"`
	EventDate  *string `json:"event_date"`
	GuestCount *int    `json:"guest_count" validate:"omitempty,gte=0"`
	Message    *string `json:"message"`
}

// Inquiry is the persisted form of an inquiry.
type Inquiry struct {
	PlannerID  *string   `bson:"planner_id"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email"`
	Phone      *string   `bson:"phone"`
	EventDate  *string   `bson:"event_date"`
	GuestCount *int      `bson:"guest_count"`
	Message    *string   `bson:"message"`
	CreatedAt  time.Time `bson:"created_at"`
}

// NewInquiry builds the document stored for in.
func NewInquiry(in InquiryInput, now time.Time) *Inquiry {
	return &Inquiry{
		PlannerID:  in.PlannerID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		EventDate:  in.EventDate,
		GuestCount: in.GuestCount,
		Message:    in.Message,
		CreatedAt:  now.UTC(),
	}
}

// InquiryReceipt is the acknowledgment returned to the caller.
type InquiryReceipt struct {
	Status string  `json:"status"`
	ID     string  `json:"id"`
	Note   *string `json:"note,omitempty"`
}

// Degraded reports whether the inquiry was acknowledged without being stored.
func (r *InquiryReceipt) Degraded() bool {
	return r.Note != nil
}

// ValidationError identifies the input field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
