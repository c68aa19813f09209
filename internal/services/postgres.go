package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/loandesk/document-service/internal/models"
)

// DocumentStore handles PostgreSQL operations for committed lead documents
// and the document-type checklist.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore connects to PostgreSQL and ensures the schema exists.
func NewDocumentStore(connectionString string) (*DocumentStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &DocumentStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	log.Println("Connected to PostgreSQL successfully")
	return s, nil
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func (s *DocumentStore) createTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS document_types (
        id VARCHAR(100) PRIMARY KEY,
        name VARCHAR(255) NOT NULL,
        category VARCHAR(100) NOT NULL DEFAULT 'general',
        required BOOLEAN NOT NULL DEFAULT false
    );

    CREATE TABLE IF NOT EXISTS lead_documents (
        id UUID PRIMARY KEY,
        lead_id VARCHAR(100) NOT NULL,
        document_type_id VARCHAR(100) NOT NULL REFERENCES document_types(id),
        file_name VARCHAR(255) NOT NULL,
        file_path VARCHAR(500) NOT NULL,
        file_size BIGINT NOT NULL,
        mime_type VARCHAR(100) NOT NULL,
        verification_status VARCHAR(50) NOT NULL DEFAULT 'pending',
        uploaded_by VARCHAR(100),
        ai_detected_type VARCHAR(255),
        ai_confidence_score INT,
        ai_quality VARCHAR(50),
        ai_validation_notes TEXT,
        ai_validated_at TIMESTAMPTZ,
        scan_status VARCHAR(50) NOT NULL DEFAULT 'pending',
        scanned_at TIMESTAMPTZ,
        uploaded_at TIMESTAMPTZ NOT NULL,
        created_at TIMESTAMPTZ DEFAULT NOW()
    );
    `
	if _, err := s.db.Exec(query); err != nil {
		return err
	}

	// One committed document per (lead, slot): replace, never append.
	indexQuery := `
    CREATE UNIQUE INDEX IF NOT EXISTS idx_lead_documents_lead_type ON lead_documents(lead_id, document_type_id);
    CREATE INDEX IF NOT EXISTS idx_lead_documents_lead ON lead_documents(lead_id);
    CREATE INDEX IF NOT EXISTS idx_lead_documents_uploaded_at ON lead_documents(uploaded_at DESC);
    CREATE INDEX IF NOT EXISTS idx_lead_documents_scan_status ON lead_documents(scan_status);
    `
	_, err := s.db.Exec(indexQuery)
	return err
}

// SeedDocumentTypes inserts checklist slots, skipping ones already present.
func (s *DocumentStore) SeedDocumentTypes(ctx context.Context, slots []models.DocumentTypeSlot) error {
	query := `
    INSERT INTO document_types (id, name, category, required)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (id) DO NOTHING
    `
	for _, slot := range slots {
		if _, err := s.db.ExecContext(ctx, query, slot.ID, slot.Name, slot.Category, slot.Required); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStore) ListDocumentTypes(ctx context.Context) ([]models.DocumentTypeSlot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, required FROM document_types ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("Error closing rows: %v", cerr)
		}
	}(rows)

	var slots []models.DocumentTypeSlot
	for rows.Next() {
		var slot models.DocumentTypeSlot
		if err := rows.Scan(&slot.ID, &slot.Name, &slot.Category, &slot.Required); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *DocumentStore) GetDocumentType(ctx context.Context, id string) (models.DocumentTypeSlot, bool, error) {
	var slot models.DocumentTypeSlot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, required FROM document_types WHERE id = $1`, id,
	).Scan(&slot.ID, &slot.Name, &slot.Category, &slot.Required)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentTypeSlot{}, false, nil
		}
		return models.DocumentTypeSlot{}, false, err
	}
	return slot, true, nil
}

// Checklist returns every slot with its status derived from the lead's
// committed documents.
func (s *DocumentStore) Checklist(ctx context.Context, leadID string) ([]models.DocumentTypeSlot, error) {
	query := `
    SELECT dt.id, dt.name, dt.category, dt.required, ld.verification_status
    FROM document_types dt
    LEFT JOIN lead_documents ld ON ld.document_type_id = dt.id AND ld.lead_id = $1
    ORDER BY dt.category, dt.name
    `
	rows, err := s.db.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("Error closing rows: %v", cerr)
		}
	}(rows)

	var slots []models.DocumentTypeSlot
	for rows.Next() {
		var slot models.DocumentTypeSlot
		var status sql.NullString
		if err := rows.Scan(&slot.ID, &slot.Name, &slot.Category, &slot.Required, &status); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}
		slot.Status = deriveSlotStatus(status)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func deriveSlotStatus(verification sql.NullString) models.SlotStatus {
	if !verification.Valid {
		return models.SlotNotUploaded
	}
	switch verification.String {
	case "verified":
		return models.SlotVerified
	case "rejected":
		return models.SlotRejected
	default:
		return models.SlotPending
	}
}

const leadDocumentColumns = `
    id, lead_id, document_type_id, file_name, file_path, file_size, mime_type,
    verification_status, uploaded_by, ai_detected_type, ai_confidence_score,
    ai_quality, ai_validation_notes, ai_validated_at, scan_status, scanned_at, uploaded_at
`

func (s *DocumentStore) SaveLeadDocument(ctx context.Context, doc models.LeadDocument) error {
	query := `
    INSERT INTO lead_documents (` + leadDocumentColumns + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `
	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.LeadID,
		doc.DocumentTypeID,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.VerificationStatus,
		doc.UploadedBy,
		nullString(doc.AIDetectedType),
		doc.AIConfidenceScore,
		nullString(doc.AIQuality),
		nullString(doc.AIValidationNotes),
		doc.AIValidatedAt,
		doc.ScanStatus,
		doc.ScannedAt,
		doc.UploadedAt,
	)
	return err
}

func (s *DocumentStore) GetLeadDocument(ctx context.Context, leadID, documentTypeID string) (models.LeadDocument, bool, error) {
	query := `SELECT ` + leadDocumentColumns + ` FROM lead_documents WHERE lead_id = $1 AND document_type_id = $2`
	doc, err := s.scanDocument(s.db.QueryRowContext(ctx, query, leadID, documentTypeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LeadDocument{}, false, nil
		}
		return models.LeadDocument{}, false, err
	}
	return doc, true, nil
}

func (s *DocumentStore) DeleteLeadDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lead_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("lead document %s not found", id)
	}
	return nil
}

// ListLeadDocuments returns a page of a lead's committed documents, newest
// first.
func (s *DocumentStore) ListLeadDocuments(ctx context.Context, leadID string, limit, offset int) ([]models.LeadDocument, error) {
	query := `SELECT ` + leadDocumentColumns + `
    FROM lead_documents WHERE lead_id = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, leadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("Error closing rows: %v", cerr)
		}
	}(rows)

	var docs []models.LeadDocument
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) CountLeadDocuments(ctx context.Context, leadID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead_documents WHERE lead_id = $1`, leadID).Scan(&total)
	return total, err
}

func (s *DocumentStore) UpdateScanStatus(ctx context.Context, id, status string, scannedAt time.Time) error {
	query := `
        UPDATE lead_documents
        SET scan_status = $1,
            scanned_at = $2
        WHERE id = $3
    `
	_, err := s.db.ExecContext(ctx, query, status, scannedAt, id)
	return err
}

// DeleteAllForLead removes every document row for a lead. Returns the number
// of rows removed.
func (s *DocumentStore) DeleteAllForLead(ctx context.Context, leadID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lead_documents WHERE lead_id = $1`, leadID)
	if err != nil {
		return 0, err
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *DocumentStore) scanDocument(row rowScanner) (models.LeadDocument, error) {
	var doc models.LeadDocument
	var detectedType, quality, notes, uploadedBy sql.NullString
	var confidence sql.NullInt64
	var validatedAt, scannedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.LeadID,
		&doc.DocumentTypeID,
		&doc.FileName,
		&doc.FilePath,
		&doc.FileSize,
		&doc.MimeType,
		&doc.VerificationStatus,
		&uploadedBy,
		&detectedType,
		&confidence,
		&quality,
		&notes,
		&validatedAt,
		&doc.ScanStatus,
		&scannedAt,
		&doc.UploadedAt,
	)
	if err != nil {
		return models.LeadDocument{}, err
	}

	doc.UploadedBy = uploadedBy.String
	doc.AIDetectedType = detectedType.String
	doc.AIConfidenceScore = int(confidence.Int64)
	doc.AIQuality = quality.String
	doc.AIValidationNotes = notes.String
	if validatedAt.Valid {
		doc.AIValidatedAt = &validatedAt.Time
	}
	if scannedAt.Valid {
		doc.ScannedAt = &scannedAt.Time
	}
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
