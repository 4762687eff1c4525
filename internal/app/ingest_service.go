package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sentinelhive/internal/model"
	"sentinelhive/internal/pkg/canonjson"
	"sentinelhive/internal/repository"
)

var ErrInvalidPayload = errors.New("invalid json payload")

// AuditPublisher emits an event after a successful ingestion. A nil
// publisher disables the audit trail.
type AuditPublisher interface {
	Publish(ctx context.Context, event model.AuditEvent) error
}

type IngestService struct {
	records   *repository.RecordRepository
	publisher AuditPublisher
	logger    *zap.Logger
}

type IngestInput struct {
	Name     string
	Filename string
	Content  []byte
}

type IngestResult struct {
	ID           uint
	Deduplicated bool
}

func NewIngestService(records *repository.RecordRepository, publisher AuditPublisher, logger *zap.Logger) *IngestService {
	return &IngestService{
		records:   records,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest stores a JSON document keyed by its canonical content hash.
// Re-ingesting identical content is an idempotent success that returns the
// pre-existing record id.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if len(input.Content) == 0 {
		return nil, ErrInvalidPayload
	}

	canonical, err := canonjson.Canonicalize(input.Content)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	hash, err := canonjson.Hash(input.Content)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	record := &model.DataRecord{
		Name:     input.Name,
		Filename: input.Filename,
		Content:  string(canonical),
		DataHash: hash,
	}

	if err := s.records.Create(record); err != nil {
		var conflict *repository.ErrHashConflict
		if errors.As(err, &conflict) {
			s.logger.Info("duplicate ingestion deduplicated",
				zap.Uint("id", conflict.ExistingID),
				zap.String("data_hash", hash),
			)
			return &IngestResult{ID: conflict.ExistingID, Deduplicated: true}, nil
		}
		return nil, err
	}

	s.logger.Info("record ingested",
		zap.Uint("id", record.ID),
		zap.String("data_hash", hash),
	)
	s.publishAudit(ctx, record)

	return &IngestResult{ID: record.ID}, nil
}

func (s *IngestService) GetRecord(ctx context.Context, id uint) (*model.DataRecord, error) {
	return s.records.GetByID(id)
}

// publishAudit is best-effort: a broken broker must not fail an ingestion
// that already committed.
func (s *IngestService) publishAudit(ctx context.Context, record *model.DataRecord) {
	if s.publisher == nil {
		return
	}
	event := model.AuditEvent{
		EventType: "ingest",
		Source:    "db-api",
		Details:   record.DataHash,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish audit event failed", zap.Error(err))
	}
}
