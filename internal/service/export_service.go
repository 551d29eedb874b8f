package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
	"github.com/Pyrogramic/test-event-website/pkg/export"
	"github.com/Pyrogramic/test-event-website/pkg/jobs"
	"github.com/Pyrogramic/test-event-website/pkg/storage"
)

type exportEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type exportRegistrationLister interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
}

// ExportServiceConfig tunes the export pipeline.
type ExportServiceConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	CleanupInterval   time.Duration
	FileTTL           time.Duration
	DownloadBasePath  string
}

// ExportService generates registration list files (CSV/PDF) for owned events
// on a background worker pool. Jobs are tracked in memory and their files are
// served through HMAC signed URLs.
type ExportService struct {
	events        exportEventReader
	registrations exportRegistrationLister
	store         *storage.LocalStorage
	signer        *storage.SignedURLSigner
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	queue         *jobs.Queue
	logger        *zap.Logger
	cfg           ExportServiceConfig

	mu      sync.RWMutex
	jobsMap map[string]*models.ExportJob

	cleanupCancel context.CancelFunc
}

// NewExportService constructs the export pipeline.
func NewExportService(events exportEventReader, registrations exportRegistrationLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = 24 * time.Hour
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = "/api/admin/exports/download"
	}

	s := &ExportService{
		events:        events,
		registrations: registrations,
		store:         store,
		signer:        signer,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
		cfg:           cfg,
		jobsMap:       make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the periodic file cleanup.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	cleanupCtx, cancel := context.WithCancel(ctx)
	s.cleanupCancel = cancel
	go s.cleanupLoop(cleanupCtx)
}

// Stop shuts down the worker pool.
func (s *ExportService) Stop() {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.queue.Stop()
}

// Request queues a registration list export for an event within the actor's
// scope and returns the queued job.
func (s *ExportService) Request(ctx context.Context, scope models.Scope, eventID string, format models.ExportFormat) (*models.ExportJob, error) {
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.ErrEventNotFound
	}
	if !scope.CanManage(event.CreatedBy) {
		return nil, appErrors.ErrAccessDenied
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		Format:      format,
		Status:      models.ExportJobQueued,
		RequestedBy: scope.ActorID(),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobsMap[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "registration_export", Payload: job.ID}); err != nil {
		s.setFailure(job.ID, "export queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return s.snapshot(job.ID), nil
}

// Get returns the job state, attaching a signed download URL once completed.
// Admins only see jobs they requested; the owner sees all.
func (s *ExportService) Get(ctx context.Context, scope models.Scope, jobID string) (*models.ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if !scope.IsOwner() && job.RequestedBy != scope.ActorID() {
		return nil, appErrors.ErrAccessDenied
	}

	if job.Status == models.ExportJobCompleted && job.FilePath != "" {
		token, expiresAt, err := s.signer.Generate(job.ID, job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		job.DownloadURL = fmt.Sprintf("%s?token=%s", s.cfg.DownloadBasePath, token)
		job.ExpiresAt = &expiresAt
	}
	return job, nil
}

// Open validates a signed token and returns the export file handle along
// with its format.
func (s *ExportService) Open(token string) (*os.File, models.ExportFormat, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	job := s.snapshot(jobID)
	if job == nil || job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, job.Format, nil
}

func (s *ExportService) handleJob(ctx context.Context, job jobs.Job) error {
	jobID, _ := job.Payload.(string)
	record := s.snapshot(jobID)
	if record == nil {
		return nil
	}

	s.setStatus(jobID, models.ExportJobRunning)

	regs, err := s.registrations.List(ctx, models.RegistrationFilter{EventID: record.EventID})
	if err != nil {
		s.setFailure(jobID, "failed to load registrations")
		return err
	}

	dataset := buildRegistrationDataset(regs)

	var rendered []byte
	switch record.Format {
	case models.ExportFormatPDF:
		title := "registrations"
		if len(regs) > 0 {
			title = regs[0].EventTitle + " registrations"
		}
		rendered, err = s.pdf.Render(dataset, title)
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.setFailure(jobID, "failed to render export")
		return err
	}

	relPath := fmt.Sprintf("events/%s/%s.%s", record.EventID, jobID, record.Format)
	if _, err := s.store.Save(relPath, rendered); err != nil {
		s.setFailure(jobID, "failed to store export")
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if j, ok := s.jobsMap[jobID]; ok {
		j.Status = models.ExportJobCompleted
		j.FilePath = relPath
		j.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("export completed", zap.String("job_id", jobID), zap.String("event_id", record.EventID), zap.Int("rows", len(regs)))
	return nil
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.cfg.FileTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("export files cleaned up", zap.Int("count", len(deleted)))
			}
		}
	}
}

func (s *ExportService) snapshot(jobID string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobsMap[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (s *ExportService) setStatus(jobID string, status models.ExportJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobsMap[jobID]; ok {
		job.Status = status
	}
}

func (s *ExportService) setFailure(jobID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobsMap[jobID]; ok {
		job.Status = models.ExportJobFailed
		job.Error = message
	}
}

func buildRegistrationDataset(regs []models.RegistrationDetail) export.Dataset {
	headers := []string{"Student Name", "Email", "Student ID", "Department", "Year", "Phone", "Status", "Group Size"}
	rows := make([]map[string]string, 0, len(regs))
	for _, reg := range regs {
		rows = append(rows, map[string]string{
			"Student Name": reg.StudentName,
			"Email":        reg.StudentEmail,
			"Student ID":   reg.StudentID,
			"Department":   reg.Department,
			"Year":         reg.Year,
			"Phone":        reg.Phone,
			"Status":       string(reg.Status),
			"Group Size":   strconv.Itoa(len(reg.GroupMembers)),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
