package commit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loandesk/document-service/internal/models"
	"github.com/loandesk/document-service/internal/queue"
	"github.com/loandesk/document-service/internal/selection"
)

type fakeClassifier struct {
	result *models.ClassificationResult
}

func (f *fakeClassifier) Classify(context.Context, string, []byte) (*models.ClassificationResult, error) {
	return f.result, nil
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Upload(_ context.Context, reader io.Reader, _ int64, objectName, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeStore struct {
	mu      sync.Mutex
	types   map[string]models.DocumentTypeSlot
	docs    map[string]models.LeadDocument // by document id
	saveErr error
}

func newFakeStore(slots ...models.DocumentTypeSlot) *fakeStore {
	types := make(map[string]models.DocumentTypeSlot)
	for _, s := range slots {
		types[s.ID] = s
	}
	return &fakeStore{types: types, docs: make(map[string]models.LeadDocument)}
}

func (f *fakeStore) ListDocumentTypes(context.Context) ([]models.DocumentTypeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DocumentTypeSlot, 0, len(f.types))
	for _, s := range f.types {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) GetDocumentType(_ context.Context, id string) (models.DocumentTypeSlot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.types[id]
	return s, ok, nil
}

func (f *fakeStore) GetLeadDocument(_ context.Context, leadID, typeID string) (models.LeadDocument, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.LeadID == leadID && d.DocumentTypeID == typeID {
			return d, true, nil
		}
	}
	return models.LeadDocument{}, false, nil
}

func (f *fakeStore) SaveLeadDocument(_ context.Context, doc models.LeadDocument) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeStore) DeleteLeadDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeStore) docsFor(leadID, typeID string) []models.LeadDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LeadDocument
	for _, d := range f.docs {
		if d.LeadID == leadID && d.DocumentTypeID == typeID {
			out = append(out, d)
		}
	}
	return out
}

type fakeEvents struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeEvents) PublishEvent(subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

type fixture struct {
	manager   *Committer
	queue     *queue.Manager
	sel       *selection.Sync
	objects   *fakeObjects
	store     *fakeStore
	events    *fakeEvents
	leadID    string
	fileID    string
	slotPanID string
}

// newFixture queues one classified PDF for lead-1. The classifier result is
// configurable; the checklist has PAN and Salary Slip slots.
func newFixture(t *testing.T, result *models.ClassificationResult) *fixture {
	t.Helper()

	bus := selection.NewBus()
	sel := selection.NewSync(bus, time.Minute)
	store := newFakeStore(
		models.DocumentTypeSlot{ID: "dt-pan", Name: "PAN Copy", Required: true},
		models.DocumentTypeSlot{ID: "dt-salary", Name: "Salary Slip"},
	)
	q := queue.NewManager(&fakeClassifier{result: result}, store, sel, nil)
	q.SetLimits(0, 20*time.Millisecond)

	objects := newFakeObjects()
	events := &fakeEvents{}
	committer := NewCommitter(q, sel, objects, store, events, nil)

	q.Intake(context.Background(), "lead-1", []queue.IntakeFile{
		{Name: "doc.pdf", Size: 4, MimeType: "application/pdf", Data: []byte("data")},
	})

	var fileID string
	require.Eventually(t, func() bool {
		snap := q.Snapshot("lead-1")
		if len(snap) != 1 || snap[0].State != models.StateClassified {
			return false
		}
		fileID = snap[0].ID
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return &fixture{
		manager:   committer,
		queue:     q,
		sel:       sel,
		objects:   objects,
		store:     store,
		events:    events,
		leadID:    "lead-1",
		fileID:    fileID,
		slotPanID: "dt-pan",
	}
}

func (fx *fixture) entry(t *testing.T) models.QueuedFile {
	t.Helper()
	qf, err := fx.queue.Peek(fx.leadID, fx.fileID)
	require.NoError(t, err)
	return qf
}

func TestCommitRequiresTarget(t *testing.T) {
	fx := newFixture(t, nil)

	_, _, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	assert.ErrorIs(t, err, ErrNoTargetType)
	assert.Equal(t, models.StateClassified, fx.entry(t).State)
	assert.Zero(t, fx.objects.count())
}

func TestNameMismatchGateHasNoSideEffects(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:       "PAN Copy",
		ConfidenceScore:    90,
		Quality:            models.QualityGood,
		DetectedPersonName: "Vikram Singh",
	})

	req := Request{
		LeadID:          fx.leadID,
		FileID:          fx.fileID,
		UploadedBy:      "admin-1",
		ApplicantName:   "Rahul Sharma",
		CoApplicantName: "Anil Gupta",
	}

	_, _, err := fx.manager.Commit(context.Background(), req)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.NameMismatch)
	assert.False(t, mismatch.TypeMismatch)

	// Declining leaves zero side effects: nothing written, state and target
	// unchanged.
	entry := fx.entry(t)
	assert.Equal(t, models.StateClassified, entry.State)
	assert.Equal(t, fx.slotPanID, entry.TargetTypeID)
	assert.Zero(t, fx.objects.count())
	assert.Empty(t, fx.store.docsFor(fx.leadID, fx.slotPanID))

	// The explicit override commits.
	req.SkipConfirm = true
	doc, notice, err := fx.manager.Commit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, notice.Replacing)
	assert.Equal(t, 1, fx.objects.count())
	assert.Equal(t, "PAN Copy", doc.AIDetectedType)
}

func TestTypeMismatchGate(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:    "Salary Slip",
		ConfidenceScore: 90,
		Quality:         models.QualityGood,
	})
	require.NoError(t, fx.queue.SetTarget(fx.leadID, fx.fileID, fx.slotPanID))

	_, _, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.TypeMismatch)
	assert.Equal(t, "Salary Slip", mismatch.DetectedType)
	assert.Equal(t, "PAN Copy", mismatch.SlotName)
}

func TestLowConfidenceSkipsTypeGate(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:    "Salary Slip",
		ConfidenceScore: 60,
		Quality:         models.QualityPoor,
	})
	require.NoError(t, fx.queue.SetTarget(fx.leadID, fx.fileID, fx.slotPanID))

	_, _, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	require.NoError(t, err)
}

func TestReplaceKeepsExactlyOneDocument(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:    "PAN Copy",
		ConfidenceScore: 95,
		Quality:         models.QualityGood,
	})

	// Seed a previously committed document for the same slot.
	old := models.LeadDocument{
		ID:             "old-doc",
		LeadID:         fx.leadID,
		DocumentTypeID: fx.slotPanID,
		FilePath:       "leads/lead-1/dt-pan/111.pdf",
	}
	require.NoError(t, fx.store.SaveLeadDocument(context.Background(), old))
	require.NoError(t, fx.objects.Upload(context.Background(), bytes.NewReader(nil), 0, old.FilePath, "application/pdf"))

	doc, notice, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	require.NoError(t, err)
	assert.True(t, notice.Replacing)

	docs := fx.store.docsFor(fx.leadID, fx.slotPanID)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	// Old object gone, new one present.
	assert.Equal(t, 1, fx.objects.count())
	fx.objects.mu.Lock()
	_, oldThere := fx.objects.objects[old.FilePath]
	fx.objects.mu.Unlock()
	assert.False(t, oldThere)
}

func TestStorageFailureMarksEntryErrored(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:    "PAN Copy",
		ConfidenceScore: 95,
		Quality:         models.QualityGood,
	})
	fx.objects.uploadErr = errors.New("bucket unavailable")

	_, _, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	require.Error(t, err)

	entry := fx.entry(t)
	assert.Equal(t, models.StateError, entry.State)
	assert.Contains(t, entry.StateMessage, "bucket unavailable")
	assert.Empty(t, fx.store.docsFor(fx.leadID, fx.slotPanID))

	// No automatic retry: the entry stays until removed.
	assert.Len(t, fx.queue.Snapshot(fx.leadID), 1)
}

func TestMetadataFailureCleansUpObject(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:    "PAN Copy",
		ConfidenceScore: 95,
		Quality:         models.QualityGood,
	})
	fx.store.saveErr = errors.New("connection reset")

	_, _, err := fx.manager.Commit(context.Background(), Request{LeadID: fx.leadID, FileID: fx.fileID})
	require.Error(t, err)
	assert.Equal(t, models.StateError, fx.entry(t).State)
	assert.Zero(t, fx.objects.count(), "orphaned object must be cleaned up")
}

func TestSuccessfulCommit(t *testing.T) {
	fx := newFixture(t, &models.ClassificationResult{
		DetectedType:       "PAN Copy",
		ConfidenceScore:    95,
		Quality:            models.QualityGood,
		DetectedPersonName: "Rahul Sharma",
		Notes:              "clear scan",
	})
	fx.sel.PinSlot(fx.leadID, fx.slotPanID)

	doc, notice, err := fx.manager.Commit(context.Background(), Request{
		LeadID:        fx.leadID,
		FileID:        fx.fileID,
		UploadedBy:    "admin-1",
		ApplicantName: "Rahul Sharma",
	})
	require.NoError(t, err)
	assert.False(t, notice.Replacing)
	assert.Equal(t, "pending", doc.VerificationStatus)
	assert.Equal(t, 95, doc.AIConfidenceScore)
	assert.Equal(t, "clear scan", doc.AIValidationNotes)
	require.NotNil(t, doc.AIValidatedAt)

	// Checklist refresh event went out and the pin was released.
	fx.events.mu.Lock()
	assert.Contains(t, fx.events.subjects, "documents.committed")
	fx.events.mu.Unlock()
	_, pinned := fx.sel.Pin(fx.leadID)
	assert.False(t, pinned)

	// The entry auto-removes shortly after upload.
	assert.Eventually(t, func() bool {
		return len(fx.queue.Snapshot(fx.leadID)) == 0
	}, time.Second, 5*time.Millisecond)
}
