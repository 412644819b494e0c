// Package notify delivers sweep summaries by mail. Delivery is best
// effort; callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/followgc/followgc/internal/engine"
)

// sendFunc matches smtp.SendMail; swapped in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain-text sweep summaries over SMTP.
type Mailer struct {
	addr   string
	from   string
	to     []string
	logger *slog.Logger
	send   sendFunc
}

// NewMailer creates a Mailer for the given SMTP endpoint. No auth; the
// expected setup is a local or trusted relay.
func NewMailer(addr, from string, to []string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{addr: addr, from: from, to: to, logger: logger, send: smtp.SendMail}
}

// SendSweepSummary renders and sends one sweep result.
func (m *Mailer) SendSweepSummary(_ context.Context, result *engine.SweepResult) error {
	msg := buildMessage(m.from, m.to, result)

	if err := m.send(m.addr, nil, m.from, m.to, msg); err != nil {
		return fmt.Errorf("notify: sending sweep summary: %w", err)
	}

	m.logger.Info("sweep summary sent", "to", strings.Join(m.to, ","))

	return nil
}

// buildMessage renders the RFC 5322 message body.
func buildMessage(from string, to []string, result *engine.SweepResult) []byte {
	report := result.Report

	subject := fmt.Sprintf("Sweep finished: %d applied, %d simulated, %d skipped, %d errors",
		report.Applied, report.Simulated, report.Skipped, report.Errors)

	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", result.FinishedAt.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Sweep ran from %s to %s.\r\n\r\n",
		result.StartedAt.Format(time.RFC3339), result.FinishedAt.Format(time.RFC3339))

	if snap := result.Snapshot; snap != nil {
		fmt.Fprintf(&b, "Followers: %d\r\nFollowing: %d\r\nNot following back: %d\r\n",
			len(snap.Followers), len(snap.Following), len(snap.NonFollowers))

		if snap.Truncated {
			b.WriteString("Warning: relation listing hit the page ceiling; the view is incomplete.\r\n")
		}

		b.WriteString("\r\n")
	}

	if report.DryRun {
		b.WriteString("Dry-run mode was enabled; no relationships were changed.\r\n\r\n")
	}

	for _, r := range report.Details {
		switch r.Outcome {
		case engine.OutcomeSkipped:
			fmt.Fprintf(&b, "  %-10s %s (%s)\r\n", r.Outcome, r.Username, r.Reason)
		case engine.OutcomeError:
			fmt.Fprintf(&b, "  %-10s %s: %s\r\n", r.Outcome, r.Username, r.Message)
		default:
			fmt.Fprintf(&b, "  %-10s %s\r\n", r.Outcome, r.Username)
		}
	}

	return []byte(b.String())
}
