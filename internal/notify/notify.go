// Package notify delivers invoice lifecycle events to the host application.
// Scheduling and presentation belong to the host; the engine only reports
// what happened.
package notify

import (
	"context"
	"errors"

	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/providers/email"
	"github.com/smallbiznis/folio/internal/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Event string

const (
	EventSent     Event = "sent"
	EventPaid     Event = "paid"
	EventOverdue  Event = "overdue"
	EventReminder Event = "reminder"
)

type Notifier interface {
	Notify(ctx context.Context, event Event, inv invoicedomain.Invoice) error
}

// LogNotifier writes every event to the log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, event Event, inv invoicedomain.Invoice) error {
	n.log.Info("invoice event",
		zap.String("event", string(event)),
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.Number),
		zap.String("company_id", inv.CompanyID),
		zap.Time("due_date", inv.DueDate),
	)
	return nil
}

// NoOp drops every event.
type NoOp struct{}

func (NoOp) Notify(context.Context, Event, invoicedomain.Invoice) error { return nil }

type Params struct {
	fx.In

	Email       email.Provider `optional:"true"`
	Collections repository.Collections
	Log         *zap.Logger
}

// New logs every event and, when SMTP is configured, also mails the client.
func New(p Params) Notifier {
	logN := NewLogNotifier(p.Log)
	if p.Email == nil {
		return logN
	}
	return Multi{logN, NewEmailNotifier(p.Email, p.Collections, p.Log)}
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event, inv invoicedomain.Invoice) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event, inv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var Module = fx.Module("notify",
	fx.Provide(New),
)
