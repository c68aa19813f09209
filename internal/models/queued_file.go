package models

import (
	"time"
)

// LifecycleState tracks a queued file from intake to commit.
// Progression is forward-only except "error", which is reachable from
// "uploading" and only leaves the queue when the user removes the entry.
type LifecycleState string

const (
	StateClassifying LifecycleState = "classifying"
	StateClassified  LifecycleState = "classified"
	StateUploading   LifecycleState = "uploading"
	StateUploaded    LifecycleState = "uploaded"
	StateError       LifecycleState = "error"
)

type QualityAssessment string

const (
	QualityGood       QualityAssessment = "good"
	QualityAcceptable QualityAssessment = "acceptable"
	QualityPoor       QualityAssessment = "poor"
	QualityUnreadable QualityAssessment = "unreadable"
)

// ClassificationResult is what the external classifier returns for one file.
// A nil result is a normal outcome, not an error.
type ClassificationResult struct {
	DetectedType       string            `json:"detected_type"`
	DetectedCategory   string            `json:"detected_category"`
	ConfidenceScore    int               `json:"confidence_score"` // 0-100
	Quality            QualityAssessment `json:"quality"`
	DetectedPersonName string            `json:"detected_person_name,omitempty"`
	RedFlags           []string          `json:"red_flags,omitempty"`
	Notes              string            `json:"notes,omitempty"`
}

// QueuedFile is one file's journey from intake to commit or discard.
type QueuedFile struct {
	ID           string                `json:"id"`
	LeadID       string                `json:"lead_id"`
	FileName     string                `json:"file_name"`
	Size         int64                 `json:"size"`
	MimeType     string                `json:"mime_type"`
	Extension    string                `json:"extension"`
	Data         []byte                `json:"-"`
	PreviewPath  string                `json:"preview_path,omitempty"`
	State        LifecycleState        `json:"state"`
	StateMessage string                `json:"state_message,omitempty"`
	Result       *ClassificationResult `json:"classification,omitempty"`
	// TargetTypeID is the checklist slot this file is meant to satisfy.
	// Empty until resolved by pin, AI match or manual selection; mutable
	// until commit.
	TargetTypeID string    `json:"target_type_id,omitempty"`
	QueuedAt     time.Time `json:"queued_at"`
}
