package scan

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	clamd "github.com/dutchcoders/go-clamd"

	"github.com/loandesk/document-service/internal/models"
	"github.com/loandesk/document-service/internal/services"
)

// Worker virus-scans committed documents after the fact. Commit does not
// wait on it; an infected document is deleted from storage and its row
// marked infected.
type Worker struct {
	objects *services.MinioService
	store   *services.DocumentStore
	clamURL string
}

func NewWorker(objects *services.MinioService, store *services.DocumentStore, clamURL string) *Worker {
	return &Worker{objects: objects, store: store, clamURL: clamURL}
}

func (w *Worker) Scan(doc models.LeadDocument) {
	ctx := context.Background()
	tempPath := fmt.Sprintf("/tmp/%s", filepath.Base(doc.FilePath))

	// Download from MinIO for scanning
	if err := w.objects.Download(ctx, doc.FilePath, tempPath); err != nil {
		log.Println("Failed to download for scanning:", err)
		return
	}
	defer os.Remove(tempPath)

	c := clamd.NewClamd(w.clamURL)
	response, err := c.ScanFile(tempPath)
	if err != nil {
		log.Println("Scan failed:", err)
		return
	}

	status := "clean"
	for res := range response {
		if res.Status == clamd.RES_FOUND {
			log.Printf("Virus detected in %s: %s", doc.ID, res.Description)
			status = "infected"

			// delete infected file
			if err := w.objects.Delete(ctx, doc.FilePath); err != nil {
				log.Println("Failed to delete infected file:", err)
				return
			}
		}
	}

	if err := w.store.UpdateScanStatus(ctx, doc.ID, status, time.Now()); err != nil {
		log.Println("Failed to update scan status:", err)
	} else {
		log.Printf("Scan finished for %s: %s", doc.ID, status)
	}
}
