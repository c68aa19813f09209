package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loandesk/document-service/internal/classify"
	"github.com/loandesk/document-service/internal/models"
	"github.com/loandesk/document-service/internal/selection"
)

const (
	// DefaultMaxFileSize is the intake hard cap.
	DefaultMaxFileSize = 10 << 20 // 10 MB

	// DefaultRemoveDelay is how long an uploaded entry lingers in the
	// queue before it is auto-removed.
	DefaultRemoveDelay = 2 * time.Second
)

var allowedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

var (
	ErrNotFound   = errors.New("queue entry not found")
	ErrBusy       = errors.New("queue entry has an operation in flight")
	ErrWrongState = errors.New("queue entry is not in the required state")
)

// SlotSource lists the document-type checklist slots the AI match runs
// against.
type SlotSource interface {
	ListDocumentTypes(ctx context.Context) ([]models.DocumentTypeSlot, error)
}

// Previewer creates and removes local preview thumbnails for image intake.
type Previewer interface {
	Generate(data []byte, fileID string) (string, error)
	Remove(path string) error
}

// entry wraps a queued file with the preview handle ownership. The preview
// must be released exactly once, on removal.
type entry struct {
	file        *models.QueuedFile
	previewOnce sync.Once
}

// Manager owns the per-lead upload queues. All mutation goes through it;
// other components only receive copies or events.
type Manager struct {
	classifier  classify.Classifier
	slots       SlotSource
	sel         *selection.Sync
	previews    Previewer
	maxSize     int64
	removeDelay time.Duration

	mu     sync.Mutex
	queues map[string][]*entry // leadID -> entries in intake order
}

func NewManager(classifier classify.Classifier, slots SlotSource, sel *selection.Sync, previews Previewer) *Manager {
	return &Manager{
		classifier:  classifier,
		slots:       slots,
		sel:         sel,
		previews:    previews,
		maxSize:     DefaultMaxFileSize,
		removeDelay: DefaultRemoveDelay,
		queues:      make(map[string][]*entry),
	}
}

// SetLimits overrides the intake size cap and the post-upload removal delay.
func (m *Manager) SetLimits(maxSize int64, removeDelay time.Duration) {
	if maxSize > 0 {
		m.maxSize = maxSize
	}
	if removeDelay > 0 {
		m.removeDelay = removeDelay
	}
}

// IntakeFile is one dropped/selected file handed to Intake.
type IntakeFile struct {
	Name     string
	Size     int64
	MimeType string
	Data     []byte
}

// IntakeResult reports per-file acceptance. Rejected files never enter the
// queue.
type IntakeResult struct {
	Accepted bool               `json:"accepted"`
	Reason   string             `json:"reason,omitempty"`
	File     *models.QueuedFile `json:"file,omitempty"`
}

// Validate applies the intake gate: size cap and extension allow-list.
func (m *Manager) Validate(name string, size int64) error {
	if size > m.maxSize {
		return fmt.Errorf("file exceeds the %d MB limit", m.maxSize>>20)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %q is not allowed", ext)
	}
	return nil
}

// Intake validates a batch and queues every accepted file in classifying
// state. Classification runs in its own goroutine per file; intake never
// waits on it, and entries progress independently of each other.
func (m *Manager) Intake(ctx context.Context, leadID string, files []IntakeFile) []IntakeResult {
	results := make([]IntakeResult, 0, len(files))

	for _, f := range files {
		if err := m.Validate(f.Name, f.Size); err != nil {
			results = append(results, IntakeResult{Accepted: false, Reason: err.Error()})
			continue
		}

		qf := &models.QueuedFile{
			ID:        uuid.New().String(),
			LeadID:    leadID,
			FileName:  f.Name,
			Size:      f.Size,
			MimeType:  f.MimeType,
			Extension: strings.ToLower(filepath.Ext(f.Name)),
			Data:      f.Data,
			State:     models.StateClassifying,
			QueuedAt:  time.Now(),
		}

		if strings.HasPrefix(f.MimeType, "image/") && m.previews != nil {
			path, err := m.previews.Generate(f.Data, qf.ID)
			if err != nil {
				log.Printf("[Queue] warning: preview generation failed for %s: %v", qf.FileName, err)
			} else {
				qf.PreviewPath = path
			}
		}

		e := &entry{file: qf}
		m.mu.Lock()
		m.queues[leadID] = append(m.queues[leadID], e)
		m.mu.Unlock()

		go m.classifyEntry(context.Background(), leadID, qf.ID)

		results = append(results, IntakeResult{Accepted: true, File: snapshotFile(qf)})
	}

	return results
}

// classifyEntry runs the classification call for one entry and resolves its
// target slot. Classification failure is absorbed: the entry still becomes
// classified, just without a payload.
func (m *Manager) classifyEntry(ctx context.Context, leadID, fileID string) {
	m.mu.Lock()
	e := m.find(leadID, fileID)
	if e == nil {
		m.mu.Unlock()
		return
	}
	name, data := e.file.FileName, e.file.Data
	m.mu.Unlock()

	result, err := m.classifier.Classify(ctx, name, data)
	if err != nil {
		log.Printf("[Queue] classification failed for %s: %v", name, err)
		result = nil
	}

	target := ""
	// A slot pinned by the user before the drop always wins over the AI
	// match.
	if pinned, ok := m.sel.Pin(leadID); ok {
		target = pinned
	} else if result != nil && result.DetectedType != "" {
		if slots, serr := m.slots.ListDocumentTypes(ctx); serr != nil {
			log.Printf("[Queue] failed to load document types for matching: %v", serr)
		} else {
			target = classify.MatchSlot(result.DetectedType, slots)
		}
	}

	m.mu.Lock()
	e = m.find(leadID, fileID)
	if e == nil {
		// Entry was removed while the classifier was in flight; drop the
		// late result.
		m.mu.Unlock()
		return
	}
	e.file.State = models.StateClassified
	e.file.Result = result
	if target != "" {
		e.file.TargetTypeID = target
	}
	m.mu.Unlock()

	if target != "" {
		m.sel.TargetResolved(leadID, fileID, target)
	}
}

// SetTarget re-targets a classified entry at a different checklist slot.
func (m *Manager) SetTarget(leadID, fileID, slotID string) error {
	m.mu.Lock()
	e := m.find(leadID, fileID)
	if e == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	switch e.file.State {
	case models.StateClassifying, models.StateUploading:
		m.mu.Unlock()
		return ErrBusy
	case models.StateUploaded:
		m.mu.Unlock()
		return ErrWrongState
	}
	e.file.TargetTypeID = slotID
	m.mu.Unlock()

	m.sel.TargetResolved(leadID, fileID, slotID)
	return nil
}

// Remove discards an entry. Entries with a classification or upload in
// flight cannot be removed; the in-flight call is never aborted, its result
// is ignored once it lands.
func (m *Manager) Remove(leadID, fileID string) error {
	m.mu.Lock()
	e := m.find(leadID, fileID)
	if e == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.file.State == models.StateClassifying || e.file.State == models.StateUploading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.unlink(leadID, fileID)
	m.mu.Unlock()

	m.releasePreview(e)
	return nil
}

// Peek returns a copy of an entry, including its payload, for the commit
// pipeline's precondition checks. No state change.
func (m *Manager) Peek(leadID, fileID string) (models.QueuedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(leadID, fileID)
	if e == nil {
		return models.QueuedFile{}, ErrNotFound
	}
	qf := *e.file
	return qf, nil
}

// MarkUploading transitions classified -> uploading.
func (m *Manager) MarkUploading(leadID, fileID string) error {
	return m.transition(leadID, fileID, models.StateClassified, models.StateUploading, "")
}

// MarkError transitions uploading -> error with a user-visible message. The
// entry stays in the queue for the user to discard and re-add.
func (m *Manager) MarkError(leadID, fileID, msg string) error {
	return m.transition(leadID, fileID, models.StateUploading, models.StateError, msg)
}

// MarkUploaded transitions uploading -> uploaded and schedules the entry's
// auto-removal, which also releases its preview handle.
func (m *Manager) MarkUploaded(leadID, fileID string) error {
	if err := m.transition(leadID, fileID, models.StateUploading, models.StateUploaded, ""); err != nil {
		return err
	}
	time.AfterFunc(m.removeDelay, func() {
		m.mu.Lock()
		e := m.find(leadID, fileID)
		if e == nil || e.file.State != models.StateUploaded {
			m.mu.Unlock()
			return
		}
		m.unlink(leadID, fileID)
		m.mu.Unlock()
		m.releasePreview(e)
	})
	return nil
}

// Snapshot returns copies of a lead's queue entries in intake order.
func (m *Manager) Snapshot(leadID string) []models.QueuedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.queues[leadID]
	out := make([]models.QueuedFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, *snapshotFile(e.file))
	}
	return out
}

func (m *Manager) transition(leadID, fileID string, from, to models.LifecycleState, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(leadID, fileID)
	if e == nil {
		return ErrNotFound
	}
	if e.file.State != from {
		return fmt.Errorf("%w: %s is %s", ErrWrongState, fileID, e.file.State)
	}
	e.file.State = to
	e.file.StateMessage = msg
	return nil
}

// find must be called with m.mu held.
func (m *Manager) find(leadID, fileID string) *entry {
	for _, e := range m.queues[leadID] {
		if e.file.ID == fileID {
			return e
		}
	}
	return nil
}

// unlink must be called with m.mu held.
func (m *Manager) unlink(leadID, fileID string) {
	entries := m.queues[leadID]
	for i, e := range entries {
		if e.file.ID == fileID {
			m.queues[leadID] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (m *Manager) releasePreview(e *entry) {
	if e.file.PreviewPath == "" || m.previews == nil {
		return
	}
	e.previewOnce.Do(func() {
		if err := m.previews.Remove(e.file.PreviewPath); err != nil {
			log.Printf("[Queue] warning: failed to remove preview %s: %v", e.file.PreviewPath, err)
		}
	})
}

// snapshotFile copies an entry for external consumption, dropping the raw
// payload.
func snapshotFile(qf *models.QueuedFile) *models.QueuedFile {
	cp := *qf
	cp.Data = nil
	if qf.Result != nil {
		res := *qf.Result
		cp.Result = &res
	}
	return &cp
}
