package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/models"
)

// Notifier sends ops alerts via Telegram
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, cfg: cfg}, nil
}

// SendAuditReport sends a summary of narrative audit findings
func (n *Notifier) SendAuditReport(ctx context.Context, report *models.AuditReport) error {
	if !n.cfg.AlertOnAudit || report.Clean() {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Narrative audit: %d findings across %d narratives\n\n",
		len(report.Findings), report.NarrativesScanned)
	fmt.Fprintf(&b, "Count mismatches: %d\n", report.CountMismatches)
	fmt.Fprintf(&b, "Duplicate id sets: %d\n", report.DuplicateSets)
	fmt.Fprintf(&b, "With orphaned articles: %d\n", report.NarrativesOrphaned)

	const maxDetailed = 10
	for i, f := range report.Findings {
		if i == maxDetailed {
			fmt.Fprintf(&b, "\n... and %d more", len(report.Findings)-maxDetailed)
			break
		}
		switch f.Kind {
		case models.FindingCountMismatch:
			fmt.Fprintf(&b, "\n• %s (%s): count %d, actual %d", f.Theme, f.NarrativeID, f.StoredCount, f.ActualCount)
		case models.FindingDuplicateIDs:
			fmt.Fprintf(&b, "\n• %s (%s): %d duplicate article ids", f.Theme, f.NarrativeID, len(f.DuplicateIDs))
		case models.FindingOrphanedArticles:
			fmt.Fprintf(&b, "\n• %s (%s): %d orphaned article refs", f.Theme, f.NarrativeID, len(f.OrphanIDs))
		}
	}

	b.WriteString("\n\nRun cmd/audit -repair to fix count/duplicate drift.")

	return n.send(b.String())
}

// SendError sends a component failure alert
func (n *Notifier) SendError(ctx context.Context, component string, err error) error {
	if !n.cfg.AlertOnErrors {
		return nil
	}

	return n.send(fmt.Sprintf("🚨 %s failed: %v", component, err))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
