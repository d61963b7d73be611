package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/irfndi/rial-arbitrage-go/internal/cache"
	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// AlertSender delivers a rendered alert to some channel.
type AlertSender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts alerts to one Telegram chat.
type TelegramSender struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramSender creates a sender for chatID. Extra options are passed to
// bot.New.
func NewTelegramSender(token string, chatID int64, opts ...bot.Option) (*TelegramSender, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b, chatID: chatID}, nil
}

// Send implements AlertSender.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// NotificationConfig controls when an opportunity is worth an alert.
type NotificationConfig struct {
	// MinDifference is the gross price gap, in rial, an alert needs.
	MinDifference decimal.Decimal
	// MinNetProfit is the net profit an alert needs.
	MinNetProfit decimal.Decimal
	// Window suppresses repeat alerts for the same pair and direction.
	Window time.Duration
}

// NotificationService decides whether the best opportunity of a cycle is
// alerted and renders it.
type NotificationService struct {
	sender AlertSender
	gate   cache.AlertGate
	config NotificationConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewNotificationService creates the alert collaborator. A nil sender makes
// Consider a no-op.
func NewNotificationService(sender AlertSender, gate cache.AlertGate, config NotificationConfig, logger *logrus.Logger) *NotificationService {
	if gate == nil {
		gate = cache.NewInMemoryAlertGate()
	}
	if config.Window <= 0 {
		config.Window = 10 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{
		sender: sender,
		gate:   gate,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Enabled reports whether alerts can be delivered.
func (ns *NotificationService) Enabled() bool {
	return ns != nil && ns.sender != nil
}

// Consider alerts opp if it clears both thresholds and the pair has not
// been alerted in the current window. It reports whether an alert was sent.
func (ns *NotificationService) Consider(ctx context.Context, opp models.ArbitrageOpportunity) (bool, error) {
	if !ns.Enabled() {
		return false, nil
	}
	if !opp.GrossSpread.GreaterThan(ns.config.MinDifference) || opp.NetProfit.LessThan(ns.config.MinNetProfit) {
		return false, nil
	}

	key := opp.Pair.String() + ":" + string(opp.Leg)
	allowed, err := ns.gate.Allow(ctx, key, ns.config.Window)
	if err != nil {
		return false, fmt.Errorf("alert gate: %w", err)
	}
	if !allowed {
		ns.logger.WithField("pair", opp.Pair.String()).Debug("Alert suppressed, already sent in this window")
		return false, nil
	}

	text := ns.FormatAlert(models.NewAlertPayload(opp, ns.now()))
	if err := ns.sender.Send(ctx, text); err != nil {
		if releaseErr := ns.gate.Release(ctx, key); releaseErr != nil {
			ns.logger.WithError(releaseErr).WithField("pair", opp.Pair.String()).Warn("Failed to release alert key after delivery failure")
		}
		return false, err
	}

	ns.logger.WithFields(logrus.Fields{
		"pair":       opp.Pair.String(),
		"leg":        opp.Leg,
		"difference": opp.GrossSpread.String(),
		"net_profit": opp.NetProfit.String(),
	}).Info("Sent arbitrage alert")
	return true, nil
}

// FormatAlert renders the Markdown alert body.
func (ns *NotificationService) FormatAlert(p models.AlertPayload) string {
	printer := message.NewPrinter(language.English)
	title := cases.Title(language.English)

	var b strings.Builder
	b.WriteString("🚀 *Arbitrage Opportunity*\n\n")
	b.WriteString(fmt.Sprintf("*%s*\n", strings.ToUpper(p.Pair.String())))
	b.WriteString(printer.Sprintf("💰 Buy on %s: %d\n", title.String(p.BuyVenue.String()), p.BuyPrice.Round(0).IntPart()))
	b.WriteString(printer.Sprintf("💰 Sell on %s: %d\n", title.String(p.SellVenue.String()), p.SellPrice.Round(0).IntPart()))
	b.WriteString(printer.Sprintf("🔍 Difference: %d\n", p.Difference.Round(0).IntPart()))
	b.WriteString(printer.Sprintf("📈 Net profit: %d\n", p.NetProfit.Round(0).IntPart()))
	if p.Network != "" {
		b.WriteString(fmt.Sprintf("🔗 Network: %s\n", p.Network))
	}
	b.WriteString(fmt.Sprintf("\n🕒 %s", p.ObservedAt.UTC().Format(time.RFC3339)))
	return b.String()
}
