package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
)

var (
	// ErrUnknownField indicates a field name the form does not have.
	ErrUnknownField = errors.New("intake: unknown form field")
	// ErrSubmitInProgress indicates a second submit while one is pending.
	ErrSubmitInProgress = errors.New("intake: submit already in progress")
)

// Submitter is the service surface a form submits through.
type Submitter interface {
	Submit(ctx context.Context, draft Draft) (submissions.Submission, error)
}

// Status is the state of the form's result indicator.
type Status string

const (
	StatusNone    Status = ""
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Indicator is what the form currently shows below its inputs.
type Indicator struct {
	Status  Status
	Message string
}

// Form holds the input state of one contact form.
type Form struct {
	service Submitter
	display time.Duration

	mu         sync.Mutex
	fields     Draft
	submitting bool
	indicator  Indicator
	hideTimer  *time.Timer
	generation uint64
}

// NewForm constructs an empty form. A non-positive display duration selects
// DefaultSuccessDisplay.
func NewForm(service Submitter, successDisplay time.Duration) *Form {
	if successDisplay <= 0 {
		successDisplay = DefaultSuccessDisplay
	}
	return &Form{service: service, display: successDisplay}
}

// SetField updates one input.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case "name":
		f.fields.Name = value
	case "email":
		f.fields.Email = value
	case "message":
		f.fields.Message = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// Fields returns the current inputs.
func (f *Form) Fields() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Submitting reports whether a submit is pending.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Indicator returns the current result indicator.
func (f *Form) Indicator() Indicator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indicator
}

// Submit sends the current inputs. On success the inputs reset and the
// success indicator shows for the display duration. On a storage failure the
// inputs are kept and the failure indicator stays until the next submit.
func (f *Form) Submit(ctx context.Context) (submissions.Submission, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return submissions.Submission{}, ErrSubmitInProgress
	}
	f.submitting = true
	f.clearIndicatorLocked()
	draft := f.fields
	f.mu.Unlock()

	record, err := f.service.Submit(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		if errors.Is(err, ErrMissingField) || ctx.Err() != nil {
			return submissions.Submission{}, err
		}
		f.indicator = Indicator{Status: StatusFailed, Message: FailureMessage}
		return submissions.Submission{}, err
	}

	f.fields = Draft{}
	f.indicator = Indicator{Status: StatusSuccess, Message: SuccessMessage}
	generation := f.generation
	f.hideTimer = time.AfterFunc(f.display, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation == generation {
			f.indicator = Indicator{}
		}
	})
	return record, nil
}

// Close cancels a pending auto-hide.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideTimer != nil {
		f.hideTimer.Stop()
		f.hideTimer = nil
	}
}

func (f *Form) clearIndicatorLocked() {
	f.generation++
	if f.hideTimer != nil {
		f.hideTimer.Stop()
		f.hideTimer = nil
	}
	f.indicator = Indicator{}
}
