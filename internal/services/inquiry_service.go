package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/metrics"
	"weddingplanners/api/internal/models"
)

const (
	// DemoInquiryID is returned in place of a store id when the inquiry could
	// not be persisted.
	DemoInquiryID = "demo-inquiry"
	demoNote      = "Stored in-memory for preview"
	statusOK      = "ok"
)

// ErrStoreUnavailable is returned by SubmitInquiry when persistence fails and
// demo mode is off.
var ErrStoreUnavailable = errors.New("inquiry store unavailable")

// InquiryNotifier is told about every inquiry that was persisted.
type InquiryNotifier interface {
	NotifyInquiry(ctx context.Context, id string, inquiry *models.Inquiry) error
}

// IInquiryService defines the interface for inquiry operations.
type IInquiryService interface {
	SubmitInquiry(ctx context.Context, in models.InquiryInput) (*models.InquiryReceipt, error)
}

// inquiryService implements IInquiryService.
type inquiryService struct {
	store    db.Store
	demoMode bool
	notifier InquiryNotifier
	metrics  metrics.Recorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewInquiryService creates a new InquiryService. notifier may be nil.
func NewInquiryService(store db.Store, cfg *config.Config, notifier InquiryNotifier, rec metrics.Recorder, log zerolog.Logger) IInquiryService {
	return &inquiryService{
		store:    store,
		demoMode: cfg.DemoMode,
		notifier: notifier,
		metrics:  rec,
		log:      log.With().Str("component", "inquiries").Logger(),
		now:      time.Now,
	}
}

// SubmitInquiry validates in and stores it. Invalid input is rejected before
// the store is touched. A failed insert is acknowledged with a placeholder id
// in demo mode and reported as ErrStoreUnavailable otherwise.
func (s *inquiryService) SubmitInquiry(ctx context.Context, in models.InquiryInput) (*models.InquiryReceipt, error) {
	if err := ValidateInquiry(in); err != nil {
		s.metrics.IncInquiry(metrics.InquiryRejected)
		return nil, err
	}

	inquiry := models.NewInquiry(in, s.now())
	id, err := s.store.InsertOne(ctx, models.InquiryCollection, inquiry)
	if err != nil {
		if !s.demoMode {
			s.metrics.IncInquiry(metrics.InquiryFailed)
			s.log.Error().Err(err).Msg("failed to store inquiry")
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.metrics.IncInquiry(metrics.InquiryDegraded)
		s.log.Warn().Err(err).Msg("inquiry store unavailable, acknowledging without persisting")
		note := demoNote
		return &models.InquiryReceipt{Status: statusOK, ID: DemoInquiryID, Note: &note}, nil
	}

	s.metrics.IncInquiry(metrics.InquiryStored)
	s.log.Info().Str("inquiry_id", id).Msg("inquiry stored")

	if s.notifier != nil {
		if notifyErr := s.notifier.NotifyInquiry(ctx, id, inquiry); notifyErr != nil {
			// The inquiry is saved; the caller still gets success.
			s.log.Error().Err(notifyErr).Str("inquiry_id", id).Msg("failed to queue inquiry notification")
		}
	}

	return &models.InquiryReceipt{Status: statusOK, ID: id}, nil
}

var inquiryValidator = newInquiryValidator()

func newInquiryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateInquiry checks in against the inquiry shape and reports the first
// offending field.
func ValidateInquiry(in models.InquiryInput) error {
	err := inquiryValidator.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate inquiry: %w", err)
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "field required"
	case "email":
		msg = "value is not a valid email address"
	case "gte":
		msg = fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return &models.ValidationError{Field: fe.Field(), Message: msg}
}
