package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/metrics"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"go.uber.org/zap"
)

const (
	// DefaultSubmitDelay is the simulated send latency before a submission is stored.
	DefaultSubmitDelay = 1500 * time.Millisecond
	// DefaultSuccessDisplay is how long the success indicator stays visible.
	DefaultSuccessDisplay = 5 * time.Second

	// SuccessMessage is shown after a stored submission.
	SuccessMessage = "Message sent successfully! Thank you for contacting me. I'll get back to you soon."
	// FailureMessage is shown when the submission could not be stored.
	FailureMessage = "could not save, try again"
)

var (
	// ErrMissingField indicates a blank required field.
	ErrMissingField = errors.New("intake: required field missing")

	errMissingStore = errors.New("intake: submission store is required")
	errMissingIDs   = errors.New("intake: id source is required")
)

// Appender persists one submission.
type Appender interface {
	Append(ctx context.Context, record submissions.Submission) error
}

// Draft holds the raw form fields.
type Draft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ServiceConfig describes the intake dependencies.
type ServiceConfig struct {
	Store       Appender
	IDs         submissions.IDSource
	Clock       func() time.Time
	SubmitDelay time.Duration
	Logger      *zap.Logger
}

// Service turns drafts into stored submissions. Nothing is delivered over the
// network; storing the record is the whole of "sending".
type Service struct {
	store  Appender
	ids    submissions.IDSource
	clock  func() time.Time
	delay  time.Duration
	logger *zap.Logger
}

// NewService validates cfg.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.IDs == nil {
		return nil, errMissingIDs
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	delay := cfg.SubmitDelay
	if delay <= 0 {
		delay = DefaultSubmitDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  cfg.Store,
		ids:    cfg.IDs,
		clock:  clock,
		delay:  delay,
		logger: logger,
	}, nil
}

// Submit validates the draft, waits the simulated delay, and appends a new
// submission. Only a cancelled context or a storage write failure make it fail
// after validation.
func (s *Service) Submit(ctx context.Context, draft Draft) (submissions.Submission, error) {
	normalized, err := normalizeDraft(draft)
	if err != nil {
		metrics.RecordContactSubmission("rejected")
		return submissions.Submission{}, err
	}

	timer := time.NewTimer(s.delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return submissions.Submission{}, ctx.Err()
	case <-timer.C:
	}

	record := submissions.Submission{
		ID:        s.ids.NextID(),
		Name:      normalized.Name,
		Email:     normalized.Email,
		Message:   normalized.Message,
		Timestamp: submissions.FormatTimestamp(s.clock()),
		Status:    submissions.StatusSubmitted,
	}
	if err := s.store.Append(ctx, record); err != nil {
		s.logger.Error("contact submission not stored",
			zap.Int64("submission_id", record.ID),
			zap.Error(err))
		metrics.RecordContactSubmission("failed")
		return submissions.Submission{}, err
	}

	s.logger.Info("contact submission stored",
		zap.Int64("submission_id", record.ID),
		zap.String("email", record.Email))
	metrics.RecordContactSubmission("accepted")
	return record, nil
}

// normalizeDraft trims name and email. The message is stored exactly as typed.
func normalizeDraft(draft Draft) (Draft, error) {
	normalized := Draft{
		Name:    strings.TrimSpace(draft.Name),
		Email:   strings.TrimSpace(draft.Email),
		Message: draft.Message,
	}
	var missing []string
	if normalized.Name == "" {
		missing = append(missing, "name")
	}
	if normalized.Email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(normalized.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return Draft{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return normalized, nil
}
