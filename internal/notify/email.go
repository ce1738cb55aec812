package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/folio/internal/company/partition"
	"github.com/smallbiznis/folio/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
	"github.com/smallbiznis/folio/internal/providers/email"
	"github.com/smallbiznis/folio/internal/repository"
	"go.uber.org/zap"
)

const eventTemplate = "invoice_event"

var subjects = map[Event]string{
	EventSent:     "Invoice %s",
	EventPaid:     "Payment received for invoice %s",
	EventOverdue:  "Invoice %s is overdue",
	EventReminder: "Reminder: invoice %s is due soon",
}

// EmailNotifier mails the invoice's client. Invoices without a client email
// are skipped.
type EmailNotifier struct {
	provider email.Provider
	cols     repository.Collections
	log      *zap.Logger
}

func NewEmailNotifier(provider email.Provider, cols repository.Collections, log *zap.Logger) *EmailNotifier {
	return &EmailNotifier{provider: provider, cols: cols, log: log.Named("notify.email")}
}

func (n *EmailNotifier) Notify(ctx context.Context, event Event, inv invoicedomain.Invoice) error {
	to := strings.TrimSpace(inv.Client.Email)
	if to == "" {
		n.log.Debug("no client email, skipping", zap.String("invoice_id", inv.ID))
		return nil
	}

	totals := calc.ComputeInvoiceTotals(inv)
	data := map[string]any{
		"subject":      fmt.Sprintf(subjects[event], inv.Number),
		"event":        string(event),
		"client_name":  inv.Client.Name,
		"number":       inv.Number,
		"total":        money.Format(totals.Total, totals.Currency),
		"due_date":     inv.DueDate.Format("2006-01-02"),
		"company_name": n.companyName(ctx, inv),
	}
	if err := n.provider.SendTemplate(ctx, []string{to}, eventTemplate, data); err != nil {
		return fmt.Errorf("email %s notification for %s: %w", event, inv.Number, err)
	}
	return nil
}

func (n *EmailNotifier) companyName(ctx context.Context, inv invoicedomain.Invoice) string {
	if n.cols.Companies == nil {
		return ""
	}
	companies := n.cols.Companies.Load(ctx).Items
	id := inv.CompanyID
	if id == "" {
		if primary, ok := partition.ResolvePrimary(companies); ok {
			return primary.DisplayName()
		}
	}
	for _, c := range companies {
		if c.ID == id {
			return c.DisplayName()
		}
	}
	return ""
}
