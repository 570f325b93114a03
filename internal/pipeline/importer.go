// Package pipeline sequences an import: parse the uploaded file, categorize
// the candidates, hold them as a preview and persist them once the user
// confirms.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fjacquet/fintrack/internal/factory"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
)

// DefaultMaxFileBytes caps uploads.
const DefaultMaxFileBytes = 10 << 20

// File is an uploaded statement, fully buffered.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// BatchCategorizer labels a batch of candidates in place.
type BatchCategorizer interface {
	CategorizeBatch(ctx context.Context, userID string, txs []models.ParsedTransaction) error
}

// BulkInserter persists a confirmed batch in one call.
type BulkInserter interface {
	BulkInsert(ctx context.Context, userID string, txs []models.Transaction) error
}

// Importer creates preview sessions.
type Importer struct {
	categorizer BatchCategorizer
	inserter    BulkInserter
	notifier    Notifier
	logger      logging.Logger
	parseOpts   factory.Options
	maxBytes    int
	sessions    *Sessions
}

// Option configures an Importer.
type Option func(*Importer)

// WithParseOptions forwards options to the format parsers.
func WithParseOptions(opts factory.Options) Option {
	return func(im *Importer) { im.parseOpts = opts }
}

// WithMaxFileBytes rejects larger uploads.
func WithMaxFileBytes(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.maxBytes = n
		}
	}
}

// WithSessions registers every preview in s.
func WithSessions(s *Sessions) Option {
	return func(im *Importer) { im.sessions = s }
}

// NewImporter creates an Importer. A nil notifier logs notifications.
func NewImporter(c BatchCategorizer, inserter BulkInserter, notifier Notifier, logger logging.Logger, opts ...Option) *Importer {
	logger = logging.OrDefault(logger)
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	im := &Importer{
		categorizer: c,
		inserter:    inserter,
		notifier:    notifier,
		logger:      logger,
		maxBytes:    DefaultMaxFileBytes,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Preview parses and categorizes f. Nothing is persisted until the returned
// session is confirmed. Failures are also reported through the notifier.
func (im *Importer) Preview(ctx context.Context, userID string, f File) (*Session, error) {
	start := time.Now()
	logger := im.logger.WithFields(
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldFile, f.Name))

	if len(f.Data) > im.maxBytes {
		err := &parsererror.ValidationError{Field: "file", Value: f.Name,
			Reason: fmt.Sprintf("must be smaller than %d MB", im.maxBytes>>20)}
		return nil, im.fail(ctx, userID, err)
	}

	txs, format, err := factory.ParseFileWithOptions(f.Name, f.ContentType, f.Data, logger, im.parseOpts)
	if err != nil {
		logger.WithError(err).Warn("Import failed")
		return nil, im.fail(ctx, userID, err)
	}

	if err := im.categorizer.CategorizeBatch(ctx, userID, txs); err != nil {
		return nil, im.fail(ctx, userID, err)
	}

	s := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		FileName:     f.Name,
		Format:       format,
		Transactions: txs,
		CreatedAt:    time.Now(),
		importer:     im,
	}
	if im.sessions != nil {
		im.sessions.Put(s)
	}

	logger.Info("Import preview ready",
		logging.F(logging.FieldSession, s.ID),
		logging.F(logging.FieldFormat, string(format)),
		logging.F(logging.FieldCount, len(txs)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return s, nil
}

func (im *Importer) fail(ctx context.Context, userID string, err error) error {
	im.notifier.Notify(ctx, Notification{
		UserID:  userID,
		Level:   LevelError,
		Message: parsererror.UserMessage(err),
	})
	return err
}
