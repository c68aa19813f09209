package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/cmd/middleware"
	"github.com/loandesk/document-service/internal/api"
	"github.com/loandesk/document-service/internal/api/handlers"
	"github.com/loandesk/document-service/internal/classify"
	"github.com/loandesk/document-service/internal/commit"
	"github.com/loandesk/document-service/internal/configuration"
	"github.com/loandesk/document-service/internal/models"
	"github.com/loandesk/document-service/internal/queue"
	"github.com/loandesk/document-service/internal/scan"
	"github.com/loandesk/document-service/internal/selection"
	"github.com/loandesk/document-service/internal/services"
	uploads "github.com/loandesk/document-service/uploads/previews"
)

func main() {
	cfg := configuration.Load()

	store, err := services.NewDocumentStore(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer store.Close()

	if err := store.SeedDocumentTypes(context.Background(), defaultChecklist); err != nil {
		log.Fatalf("Failed to seed document types: %v", err)
	}

	minioService, err := services.NewMinioService(
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.BucketName,
		cfg.MinIO.UseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	natsService, err := services.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsService.Close()

	auth, err := middleware.NewAuthenticator(cfg.KeycloakUrl)
	if err != nil {
		log.Fatalf("Failed to initialize OIDC verifier: %v", err)
	}

	previews, err := uploads.NewGenerator(cfg.PreviewDir, uploads.DefaultPreviewWidth)
	if err != nil {
		log.Fatalf("Failed to set up preview directory: %v", err)
	}

	bus := selection.NewBus()
	sel := selection.NewSync(bus, selection.DefaultHighlightTTL)

	classifier := classify.NewHTTPClassifier(cfg.ClassifierURL)
	queueManager := queue.NewManager(classifier, store, sel, previews)

	scanner := scan.NewWorker(minioService, store, cfg.CLAMAVURL)
	committer := commit.NewCommitter(queueManager, sel, minioService, store, natsService, scanner)

	h := handlers.New(queueManager, committer, sel, store, minioService)

	// React to upstream lead deletions.
	if _, err := natsService.SubscribeEvent("leads.deleted", "document-service-lead-cleanup", h.HandleLeadDeleted); err != nil {
		log.Printf("Warning: failed to subscribe to leads.deleted: %v", err)
	}

	setupGracefulShutdown(natsService, store)

	r := gin.Default()
	api.RegisterRoutes(r, h, auth.RequireAuth())

	log.Printf("Server starting on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// defaultChecklist is the education-loan document checklist. Seeding skips
// slots that already exist, so operators can add custom ones.
var defaultChecklist = []models.DocumentTypeSlot{
	{ID: "marksheet-10th", Name: "10th Marksheet", Category: "academic", Required: true},
	{ID: "marksheet-12th", Name: "12th Marksheet", Category: "academic", Required: true},
	{ID: "degree-marksheet", Name: "Degree Marksheet", Category: "academic", Required: false},
	{ID: "admission-letter", Name: "Admission Letter", Category: "academic", Required: true},
	{ID: "pan-card", Name: "PAN Card", Category: "identity", Required: true},
	{ID: "aadhaar-card", Name: "Aadhaar Card", Category: "identity", Required: true},
	{ID: "passport", Name: "Passport", Category: "identity", Required: false},
	{ID: "salary-slips", Name: "Salary Slips", Category: "financial", Required: true},
	{ID: "bank-statement", Name: "Bank Statement", Category: "financial", Required: true},
	{ID: "itr", Name: "Income Tax Returns", Category: "financial", Required: false},
	{ID: "co-applicant-pan", Name: "Co-Applicant PAN Card", Category: "co-applicant", Required: true},
	{ID: "co-applicant-aadhaar", Name: "Co-Applicant Aadhaar Card", Category: "co-applicant", Required: true},
}

func setupGracefulShutdown(natsService *services.NatsService, store *services.DocumentStore) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		natsService.Close()
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close database: %v", err)
		}
		os.Exit(0)
	}()
}
