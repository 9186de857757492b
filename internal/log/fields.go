package log

import "time"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldJob           = "job"
	FieldRunID         = "run_id"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldTransactionID = "transaction_id"
	FieldInstanceID    = "instance_id"
	FieldUserID        = "user_id"
	FieldSettingID     = "setting_id"
	FieldReportID      = "report_id"
	FieldInterval      = "interval"
	FieldNextDate      = "next_date"
	FieldPeriod        = "period"
	FieldStatus        = "status"
	FieldOutcome       = "outcome"
	FieldReason        = "reason"
	FieldAmountCents   = "amount_cents"
	FieldFireTime      = "fire_time"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentScheduler = "scheduler"
	ComponentRecurring = "recurring"
	ComponentReports   = "reports"
	ComponentInsights  = "insights"
	ComponentNotify    = "notify"
	ComponentAMQP      = "amqp"
	ComponentMailer    = "mailer"
)

// Operations defines standard operation names
const (
	OpMaterialize = "materialize"
	OpReport      = "report"
	OpDeliver     = "deliver"
	OpConsume     = "consume"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithJob tags a scheduler run.
func (f LogFields) WithJob(job, runID string) LogFields {
	f[FieldJob] = job
	f[FieldRunID] = runID
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message and, when known, its category.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if errorType != "" {
			f[FieldErrorType] = errorType
		}
	}
	return f
}

func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	f[FieldDurationHuman] = d.Round(time.Millisecond).String()
	return f
}

// WithTransaction adds recurrence template fields.
func (f LogFields) WithTransaction(id, userID, interval string, amountCents int64) LogFields {
	f[FieldTransactionID] = id
	f[FieldUserID] = userID
	f[FieldInterval] = interval
	f[FieldAmountCents] = amountCents
	return f
}

// WithReportSetting adds report subscription fields.
func (f LogFields) WithReportSetting(settingID, userID, period string) LogFields {
	f[FieldSettingID] = settingID
	f[FieldUserID] = userID
	f[FieldPeriod] = period
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
