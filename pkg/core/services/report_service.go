package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

type ReportService struct {
	repo         ports.ReportRepository
	storeTimeout time.Duration
	now          func() time.Time
}

func NewReportService(repo ports.ReportRepository, storeTimeout time.Duration) *ReportService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &ReportService{repo: repo, storeTimeout: storeTimeout, now: time.Now}
}

// Submit stores an abuse report. Reports are only recorded, never acted on here.
func (s *ReportService) Submit(ctx context.Context, url, reason, message string) (*domain.AbuseReport, error) {
	report := &domain.AbuseReport{
		ID:        uuid.NewString(),
		URL:       strings.TrimSpace(url),
		Reason:    strings.TrimSpace(reason),
		Message:   strings.TrimSpace(message),
		CreatedAt: s.now().UTC(),
	}
	if err := validate.Struct(report); err != nil {
		return nil, reportError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.RecordReport(ctx, report); err != nil {
		return nil, domain.StoreError(err)
	}
	return report, nil
}

// reportError names the first invalid field.
func reportError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidReport, strings.ToLower(fe.Field()))
		case "url":
			return fmt.Errorf("%w: please enter a valid URL", domain.ErrInvalidReport)
		case "max":
			return fmt.Errorf("%w: %s is too long", domain.ErrInvalidReport, strings.ToLower(fe.Field()))
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidReport, err)
}

var _ ports.ReportService = (*ReportService)(nil)
