package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/pkg/logger"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	usage         = "Usage: /sentiment SYMBOL [day|week|month|year|all] [sub1,sub2]"
	searchTimeout = 2 * time.Minute
)

type Searcher interface {
	RunSearch(ctx context.Context, symbol, window string, sources []string) (domain.Outcome, error)
}

// StartTelegramBot registers the command handlers and starts polling in
// the background. An empty token disables the bot.
func StartTelegramBot(token string, searcher Searcher, defaultSources []string) error {
	if strings.TrimSpace(token) == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("create Telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/sentiment", func(c tele.Context) error {
		req, ok := parseSentimentArgs(c.Args(), defaultSources)
		if !ok {
			return c.Send(usage)
		}
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()

		outcome, err := searcher.RunSearch(ctx, req.symbol, req.window, req.sources)
		if err != nil {
			logger.Warn("telegram search failed", zap.String("symbol", req.symbol), zap.Error(err))
			return c.Send(fmt.Sprintf("Search for %s did not finish: %v", req.symbol, err))
		}
		return c.Send(formatOutcome(outcome))
	})

	logger.Info("Telegram bot started")
	go b.Start()
	return nil
}

type sentimentRequest struct {
	symbol  string
	window  string
	sources []string
}

func parseSentimentArgs(args []string, defaultSources []string) (sentimentRequest, bool) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return sentimentRequest{}, false
	}
	req := sentimentRequest{
		symbol:  strings.ToUpper(strings.TrimSpace(args[0])),
		window:  string(domain.WindowMonth),
		sources: defaultSources,
	}
	if len(args) > 1 {
		req.window = strings.ToLower(args[1])
	}
	if len(args) > 2 {
		req.sources = strings.Split(args[2], ",")
	}
	return req, true
}

func formatOutcome(o domain.Outcome) string {
	switch o.Kind {
	case domain.OutcomeInvalidInput:
		return o.Message + "\n" + usage
	case domain.OutcomeInvalidTicker:
		return fmt.Sprintf("%s: ticker not found", o.Symbol)
	case domain.OutcomeEmpty:
		return fmt.Sprintf("%s (%s): no posts found", o.Symbol, o.Window.Description())
	}

	r := o.Result
	label := "n/a"
	if r.OverallLabel != nil {
		label = string(*r.OverallLabel)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s sentiment over %s: %s (%.2f)\n", o.Symbol, o.Window.Description(), label, r.OverallScore)
	fmt.Fprintf(&b, "Posts: %d\n", o.TotalPosts())
	fmt.Fprintf(&b, "Last close: $%.2f\n", r.Metrics.LastClose)
	fmt.Fprintf(&b, "Avg daily change: %.2f%%\n", r.Metrics.AvgDailyChangePct)
	fmt.Fprintf(&b, "Price vs 31d ago: %.2f%%\n", r.Metrics.PriceChangePct)
	fmt.Fprintf(&b, "Volume vs 31d ago: %.2f%%", r.Metrics.VolumeChangePct)
	if r.Summary != "" {
		b.WriteString("\n\n" + r.Summary)
	}
	return b.String()
}
