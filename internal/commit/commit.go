package commit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loandesk/document-service/internal/classify"
	"github.com/loandesk/document-service/internal/models"
	"github.com/loandesk/document-service/internal/queue"
	"github.com/loandesk/document-service/internal/selection"
)

// TypeGateConfidence is the minimum AI confidence at which a detected-type
// disagreement with the chosen slot blocks the commit.
const TypeGateConfidence = 70

var ErrNoTargetType = errors.New("select a document type before uploading")

// MismatchError is a confirmation gate, not a failure: the commit is paused
// until the caller retries with SkipConfirm after an explicit override.
type MismatchError struct {
	NameMismatch bool   `json:"name_mismatch"`
	TypeMismatch bool   `json:"type_mismatch"`
	DetectedName string `json:"detected_name,omitempty"`
	DetectedType string `json:"detected_type,omitempty"`
	SlotName     string `json:"slot_name,omitempty"`
}

func (e *MismatchError) Error() string {
	var parts []string
	if e.NameMismatch {
		parts = append(parts, fmt.Sprintf("detected name %q does not match the applicant or co-applicant", e.DetectedName))
	}
	if e.TypeMismatch {
		parts = append(parts, fmt.Sprintf("detected type %q does not match slot %q", e.DetectedType, e.SlotName))
	}
	return "confirmation required: " + strings.Join(parts, "; ")
}

// ObjectStore is the object storage collaborator.
type ObjectStore interface {
	Upload(ctx context.Context, reader io.Reader, size int64, objectName, contentType string) error
	Delete(ctx context.Context, objectName string) error
}

// MetadataStore is the committed-documents collaborator.
type MetadataStore interface {
	GetDocumentType(ctx context.Context, id string) (models.DocumentTypeSlot, bool, error)
	GetLeadDocument(ctx context.Context, leadID, documentTypeID string) (models.LeadDocument, bool, error)
	SaveLeadDocument(ctx context.Context, doc models.LeadDocument) error
	DeleteLeadDocument(ctx context.Context, id string) error
}

// EventPublisher carries the "upload succeeded" signal to external
// consumers (dashboard checklist refresh).
type EventPublisher interface {
	PublishEvent(subject string, payload interface{}) error
}

// Scanner runs the post-commit virus scan; fire-and-forget.
type Scanner interface {
	Scan(doc models.LeadDocument)
}

// Request is one explicit "Approve & Upload" action.
type Request struct {
	LeadID          string
	FileID          string
	UploadedBy      string
	ApplicantName   string
	CoApplicantName string
	// SkipConfirm is set when the user already confirmed a mismatch once.
	SkipConfirm bool
}

// Notice carries non-blocking information back to the caller.
type Notice struct {
	Replacing bool `json:"replacing"`
}

// Committer runs the commit pipeline: precondition checks, mismatch gates,
// delete-then-insert replace, storage and metadata writes.
type Committer struct {
	queue   *queue.Manager
	sel     *selection.Sync
	objects ObjectStore
	store   MetadataStore
	events  EventPublisher
	scanner Scanner
}

func NewCommitter(q *queue.Manager, sel *selection.Sync, objects ObjectStore, store MetadataStore, events EventPublisher, scanner Scanner) *Committer {
	return &Committer{
		queue:   q,
		sel:     sel,
		objects: objects,
		store:   store,
		events:  events,
		scanner: scanner,
	}
}

// Commit persists one queued file. Preconditions run in order before any
// network effect; a mismatch gate or precondition failure leaves the entry
// untouched in classified state.
func (c *Committer) Commit(ctx context.Context, req Request) (models.LeadDocument, Notice, error) {
	qf, err := c.queue.Peek(req.LeadID, req.FileID)
	if err != nil {
		return models.LeadDocument{}, Notice{}, err
	}
	if qf.State != models.StateClassified {
		return models.LeadDocument{}, Notice{}, fmt.Errorf("%w: entry is %s", queue.ErrWrongState, qf.State)
	}
	if qf.TargetTypeID == "" {
		return models.LeadDocument{}, Notice{}, ErrNoTargetType
	}

	slot, ok, err := c.store.GetDocumentType(ctx, qf.TargetTypeID)
	if err != nil {
		return models.LeadDocument{}, Notice{}, fmt.Errorf("failed to load document type: %w", err)
	}
	if !ok {
		return models.LeadDocument{}, Notice{}, fmt.Errorf("unknown document type %s", qf.TargetTypeID)
	}

	existing, exists, err := c.store.GetLeadDocument(ctx, req.LeadID, qf.TargetTypeID)
	if err != nil {
		return models.LeadDocument{}, Notice{}, fmt.Errorf("failed to check existing document: %w", err)
	}
	notice := Notice{Replacing: exists}

	if !req.SkipConfirm {
		if mismatch := c.checkMismatch(qf, slot, req); mismatch != nil {
			return models.LeadDocument{}, notice, mismatch
		}
	}

	if err := c.queue.MarkUploading(req.LeadID, req.FileID); err != nil {
		return models.LeadDocument{}, notice, err
	}

	// Replace is delete-then-insert: the old object and row go away before
	// the new ones are written. Last write wins, no version history.
	if exists {
		if err := c.objects.Delete(ctx, existing.FilePath); err != nil {
			log.Printf("[Commit] warning: failed to delete replaced object %s: %v", existing.FilePath, err)
		}
		if err := c.store.DeleteLeadDocument(ctx, existing.ID); err != nil {
			return c.fail(req, fmt.Errorf("failed to remove replaced document record: %w", err))
		}
	}

	objectName := fmt.Sprintf("leads/%s/%s/%d%s", req.LeadID, qf.TargetTypeID, time.Now().Unix(), qf.Extension)
	if err := c.objects.Upload(ctx, bytes.NewReader(qf.Data), qf.Size, objectName, qf.MimeType); err != nil {
		return c.fail(req, fmt.Errorf("failed to upload to storage: %w", err))
	}

	doc := buildDocument(qf, req, objectName)
	if err := c.store.SaveLeadDocument(ctx, doc); err != nil {
		// Keep storage and metadata consistent: drop the orphaned object.
		if delErr := c.objects.Delete(ctx, objectName); delErr != nil {
			log.Printf("[Commit] warning: failed to cleanup object after metadata save failure: %v", delErr)
		}
		return c.fail(req, fmt.Errorf("failed to save document record: %w", err))
	}

	if err := c.queue.MarkUploaded(req.LeadID, req.FileID); err != nil {
		log.Printf("[Commit] warning: could not mark entry uploaded: %v", err)
	}

	c.sel.Committed(req.LeadID, req.FileID, qf.TargetTypeID)

	if c.events != nil {
		event := map[string]interface{}{
			"action":           "committed",
			"document_id":      doc.ID,
			"lead_id":          doc.LeadID,
			"document_type_id": doc.DocumentTypeID,
			"object_name":      doc.FilePath,
			"size":             doc.FileSize,
			"uploaded_by":      doc.UploadedBy,
			"uploaded_at":      doc.UploadedAt.UTC().Format(time.RFC3339),
		}
		if err := c.events.PublishEvent("documents.committed", event); err != nil {
			log.Printf("[Commit] warning: failed to publish documents.committed event: %v", err)
		}
	}

	if c.scanner != nil {
		go c.scanner.Scan(doc)
	}

	return doc, notice, nil
}

func (c *Committer) checkMismatch(qf models.QueuedFile, slot models.DocumentTypeSlot, req Request) *MismatchError {
	if qf.Result == nil {
		return nil
	}
	mismatch := &MismatchError{}

	if qf.Result.DetectedPersonName != "" &&
		!classify.NameMatches(qf.Result.DetectedPersonName, req.ApplicantName, req.CoApplicantName) {
		mismatch.NameMismatch = true
		mismatch.DetectedName = qf.Result.DetectedPersonName
	}

	if qf.Result.ConfidenceScore >= TypeGateConfidence &&
		qf.Result.DetectedType != "" &&
		!classify.TypeMatches(qf.Result.DetectedType, slot.Name) {
		mismatch.TypeMismatch = true
		mismatch.DetectedType = qf.Result.DetectedType
		mismatch.SlotName = slot.Name
	}

	if mismatch.NameMismatch || mismatch.TypeMismatch {
		return mismatch
	}
	return nil
}

func (c *Committer) fail(req Request, err error) (models.LeadDocument, Notice, error) {
	if markErr := c.queue.MarkError(req.LeadID, req.FileID, err.Error()); markErr != nil {
		log.Printf("[Commit] warning: could not mark entry errored: %v", markErr)
	}
	return models.LeadDocument{}, Notice{}, err
}

func buildDocument(qf models.QueuedFile, req Request, objectName string) models.LeadDocument {
	now := time.Now()
	doc := models.LeadDocument{
		ID:                 uuid.New().String(),
		LeadID:             req.LeadID,
		DocumentTypeID:     qf.TargetTypeID,
		FileName:           qf.FileName,
		FilePath:           objectName,
		FileSize:           qf.Size,
		MimeType:           qf.MimeType,
		VerificationStatus: "pending",
		UploadedBy:         req.UploadedBy,
		ScanStatus:         "pending",
		UploadedAt:         now,
	}
	if qf.Result != nil {
		doc.AIDetectedType = qf.Result.DetectedType
		doc.AIConfidenceScore = qf.Result.ConfidenceScore
		doc.AIQuality = string(qf.Result.Quality)
		doc.AIValidationNotes = qf.Result.Notes
		doc.AIValidatedAt = &now
	}
	return doc
}
