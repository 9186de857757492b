package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// ReportSettingService applies user preference changes to report
// subscriptions while keeping nextReportDate consistent with isEnabled.
type ReportSettingService struct {
	store ReportSettingStore
	now   func() time.Time
}

func NewReportSettingService(store ReportSettingStore) *ReportSettingService {
	return &ReportSettingService{store: store, now: time.Now}
}

// Update enables or disables a user's reports. Enabling keeps a next date
// that is still in the future and otherwise schedules from the last send;
// disabling clears the next date.
func (s *ReportSettingService) Update(ctx context.Context, userID string, enabled bool) (core.ReportSetting, error) {
	setting, err := s.store.GetReportSetting(ctx, userID)
	if err != nil {
		return core.ReportSetting{}, err
	}
	now := s.now().UTC()

	setting.IsEnabled = enabled
	switch {
	case !enabled:
		setting.NextReportDate = nil
	case setting.NextReportDate == nil || !setting.NextReportDate.After(now):
		next := core.NextReportDate(setting.LastSentDate, now)
		setting.NextReportDate = &next
	}

	if err := setting.Validate(); err != nil {
		return core.ReportSetting{}, err
	}
	if err := s.store.UpdateReportSetting(ctx, setting, now); err != nil {
		return core.ReportSetting{}, fmt.Errorf("update report setting: %w", err)
	}
	setting.UpdatedAt = now
	return setting, nil
}

// EnsureDefault returns the user's setting, creating the enabled monthly
// default when none exists. The user must already be mirrored locally.
func (s *ReportSettingService) EnsureDefault(ctx context.Context, userID string) (core.ReportSetting, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.ReportSetting{}, err
	}
	existing, err := s.store.GetReportSetting(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.ReportSetting{}, err
	}

	now := s.now().UTC()
	next := core.NextReportDate(nil, now)
	setting := core.ReportSetting{
		ID:             uuid.NewString(),
		UserID:         userID,
		IsEnabled:      true,
		Frequency:      core.FrequencyMonthly,
		NextReportDate: &next,
		UpdatedAt:      now,
	}
	if err := setting.Validate(); err != nil {
		return core.ReportSetting{}, err
	}
	if err := s.store.CreateReportSetting(ctx, setting, now); err != nil {
		return core.ReportSetting{}, fmt.Errorf("create default report setting: %w", err)
	}
	return setting, nil
}
