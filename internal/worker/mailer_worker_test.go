package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/notify"
)

type stubMailer struct {
	err   error
	block bool
	sent  []notify.Notification
}

func (m *stubMailer) Send(ctx context.Context, n notify.Notification) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.sent = append(m.sent, n)
	return m.err
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func validNotification() notify.Notification {
	return notify.Notification{
		Email:         "ada@example.com",
		Name:          "Ada",
		Frequency:     "Monthly",
		Period:        "March 2024",
		TotalIncome:   5000,
		TotalExpenses: 3000,
		Balance:       2000,
		SavingsRate:   40,
	}
}

func TestMailerWorker_HandleReportEmail(t *testing.T) {
	tests := []struct {
		name      string
		mailer    *stubMailer
		n         notify.Notification
		wantErr   bool
		wantStats Stats
		wantSent  int
	}{
		{
			name:      "delivered",
			mailer:    &stubMailer{},
			n:         validNotification(),
			wantStats: Stats{Delivered: 1},
			wantSent:  1,
		},
		{
			name:   "invalid email is dropped",
			mailer: &stubMailer{},
			n: func() notify.Notification {
				n := validNotification()
				n.Email = "nobody"
				return n
			}(),
			wantStats: Stats{Rejected: 1},
		},
		{
			name:      "smtp failure is returned for redelivery",
			mailer:    &stubMailer{err: errors.New("connection refused")},
			n:         validNotification(),
			wantErr:   true,
			wantStats: Stats{Failed: 1},
			wantSent:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewMailerWorker(tt.mailer, quietLogger())
			err := w.HandleReportEmail(context.Background(), tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleReportEmail() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := w.Stats(); got != tt.wantStats {
				t.Errorf("Stats() = %+v, want %+v", got, tt.wantStats)
			}
			if len(tt.mailer.sent) != tt.wantSent {
				t.Errorf("sent %d emails, want %d", len(tt.mailer.sent), tt.wantSent)
			}
		})
	}
}

func TestMailerWorker_SendTimeout(t *testing.T) {
	w := NewMailerWorker(&stubMailer{block: true}, quietLogger())
	w.sendTimeout = 10 * time.Millisecond

	err := w.HandleReportEmail(context.Background(), validNotification())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("HandleReportEmail() error = %v, want deadline exceeded", err)
	}
	if got := w.Stats().Failed; got != 1 {
		t.Errorf("Stats().Failed = %d, want 1", got)
	}
}
