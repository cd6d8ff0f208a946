package model

import "encoding/json"

// DigitizedPaper is the structured content extracted from an uploaded
// question paper.
type DigitizedPaper struct {
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// FeedbackRequest is the non-file part of a feedback submission.
type FeedbackRequest struct {
	Category string          `json:"category" form:"category" binding:"required,oneof=bug idea question other"`
	Message  string          `json:"message" form:"message" binding:"required,min=3,max=4000"`
	Context  json.RawMessage `json:"context,omitempty" form:"-"`
}

// FeedbackReceipt is what the backend returns after storing feedback.
type FeedbackReceipt struct {
	ID        string   `json:"id"`
	FilePaths []string `json:"file_paths"`
}
