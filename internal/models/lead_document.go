package models

import (
	"time"
)

// SlotStatus is derived from the committed documents for a lead.
type SlotStatus string

const (
	SlotNotUploaded SlotStatus = "not_uploaded"
	SlotPending     SlotStatus = "pending"
	SlotVerified    SlotStatus = "verified"
	SlotRejected    SlotStatus = "rejected"
)

// DocumentTypeSlot is a named checklist item a document can fulfill
// (e.g. "PAN Copy").
type DocumentTypeSlot struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Required bool       `json:"required"`
	Status   SlotStatus `json:"status"`
}

// LeadDocument is one committed upload. At most one row exists per
// (lead_id, document_type_id); replacing is delete-then-insert.
type LeadDocument struct {
	ID                 string     `json:"id"`
	LeadID             string     `json:"lead_id"`
	DocumentTypeID     string     `json:"document_type_id"`
	FileName           string     `json:"file_name"`
	FilePath           string     `json:"file_path"`
	FileSize           int64      `json:"file_size"`
	MimeType           string     `json:"mime_type"`
	VerificationStatus string     `json:"verification_status"`
	UploadedBy         string     `json:"uploaded_by"`
	AIDetectedType     string     `json:"ai_detected_type,omitempty"`
	AIConfidenceScore  int        `json:"ai_confidence_score,omitempty"`
	AIQuality          string     `json:"ai_quality,omitempty"`
	AIValidationNotes  string     `json:"ai_validation_notes,omitempty"`
	AIValidatedAt      *time.Time `json:"ai_validated_at,omitempty"`
	ScanStatus         string     `json:"scan_status"`
	ScannedAt          *time.Time `json:"scanned_at,omitempty"`
	UploadedAt         time.Time  `json:"uploaded_at"`
}
