package telegram

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/alert"
	"trade-alerts/internal/hash"
	"trade-alerts/internal/types"
	"trade-alerts/lib/helpers"
	"trade-alerts/lib/translation"
)

// minHashRef is the shortest hash prefix accepted by /alert delete, the
// length /alert list displays.
const minHashRef = len(hash.Prefix) + 8

var (
	errUsage        = errors.New("invalid arguments")
	errInvalidLevel = errors.New("price level must be a positive number")
)

// AlertRecorder counts alerts created from chat.
type AlertRecorder interface {
	AlertCreated()
}

// Commands answers chat commands against the alert store and the price oracle.
type Commands struct {
	repo      alert.Repository
	oracle    alert.PriceOracle
	evaluator alert.Evaluator
	config    types.TableConfig
	recorder  AlertRecorder
}

func NewCommands(repo alert.Repository, oracle alert.PriceOracle, evaluator alert.Evaluator, config types.TableConfig, recorder AlertRecorder) *Commands {
	return &Commands{
		repo:      repo,
		oracle:    oracle,
		evaluator: evaluator,
		config:    config,
		recorder:  recorder,
	}
}

// Handle returns the MarkdownV2 reply for a command sent from chatID.
func (c *Commands) Handle(ctx context.Context, chatID int64, command, args string) string {
	switch command {
	case "p":
		return c.CommandPrice(ctx, args)
	case "alert":
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return alertUsage()
		}
		switch strings.ToLower(fields[0]) {
		case "list":
			return c.CommandAlertList(ctx, chatID)
		case "delete":
			if len(fields) != 2 {
				return alertUsage()
			}
			return c.CommandAlertDelete(ctx, chatID, fields[1])
		}
		return c.CommandAlertCreate(ctx, chatID, args)
	}
	return helpers.EscapeMarkdownV2(translation.Translate(
		"Commands:\n" +
			"/alert <symbol> <level> [above|below] - set a price alert\n" +
			"/alert list - show your alerts\n" +
			"/alert delete <id> - remove one of your alerts\n" +
			"/p <symbol> - current price",
	))
}

// ParseAlertArguments reads "<symbol> <level> [direction]".
func ParseAlertArguments(args string) (string, float64, types.Direction, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return "", 0, types.DirectionUnset, errUsage
	}

	symbol := types.NormalizeSymbol(fields[0])

	raw := strings.ReplaceAll(strings.TrimPrefix(fields[1], "$"), ",", "")
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(level) || math.IsInf(level, 0) || level <= 0 {
		return "", 0, types.DirectionUnset, errors.Wrapf(errInvalidLevel, "got %q", fields[1])
	}

	direction := types.DirectionUnset
	if len(fields) == 3 {
		if direction, err = types.ParseDirection(fields[2]); err != nil {
			return "", 0, types.DirectionUnset, err
		}
	}
	return symbol, level, direction, nil
}

// CommandAlertCreate stores a new alert for the chat. Without an explicit
// direction the alert watches the side of its level opposite the current price.
func (c *Commands) CommandAlertCreate(ctx context.Context, chatID int64, args string) string {
	log.Debugf("processing command /alert with argument :%s", args)

	symbol, level, direction, err := ParseAlertArguments(args)
	switch {
	case errors.Is(err, types.ErrInvalidDirection):
		return helpers.EscapeMarkdownV2(translation.Translate("Unknown direction, use above or below"))
	case errors.Is(err, errInvalidLevel):
		return helpers.EscapeMarkdownV2(translation.Translate("The price level must be a positive number"))
	case err != nil:
		return alertUsage()
	}

	a := hash.NewAlert(level, symbol, userIDForChat(chatID))

	if direction == types.DirectionUnset {
		prices, err := c.oracle.FetchPricesForSymbols(ctx, types.NewSymbolSet(symbol))
		if err != nil {
			log.Warnf("Could not price %s for a new alert: %v", symbol, err)
		} else if current, ok := prices[symbol]; ok {
			direction = types.InferDirection(current, level)
		}
	}
	a = a.WithDirection(direction)

	_, err = c.repo.FetchDetailsByHash(ctx, a.Hash, c.config)
	existed := err == nil

	if err := c.repo.AddAlert(ctx, a, c.config); err != nil {
		log.Errorf("Failed to save alert %s: %v", a.Hash, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to save alert. Please try again later."))
	}

	// the direction is not part of the hash, so an existing alert keeps its own
	stored, err := c.repo.FetchDetailsByHash(ctx, a.Hash, c.config)
	if err != nil {
		log.Errorf("Failed to read back alert %s: %v", a.Hash, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to save alert. Please try again later."))
	}

	if existed {
		if c.evaluator.Direction(stored) != c.evaluator.Direction(a) {
			return translation.Translate("ℹ️ You already have this alert watching %s: *%s* *%s*\nid: `%s`\nDelete it first to watch %s",
				c.evaluator.Direction(stored),
				helpers.EscapeMarkdownV2(stored.Symbol),
				helpers.FormatPriceUS(stored.PriceLevel, true),
				stored.Hash,
				c.evaluator.Direction(a),
			)
		}
		return translation.Translate("ℹ️ You already have this alert: *%s* %s *%s*\nid: `%s`",
			helpers.EscapeMarkdownV2(stored.Symbol),
			c.evaluator.Direction(stored),
			helpers.FormatPriceUS(stored.PriceLevel, true),
			stored.Hash,
		)
	}

	if c.recorder != nil {
		c.recorder.AlertCreated()
	}
	return translation.Translate("✅ Alert set: *%s* %s *%s*\nid: `%s`",
		helpers.EscapeMarkdownV2(stored.Symbol),
		c.evaluator.Direction(stored),
		helpers.FormatPriceUS(stored.PriceLevel, true),
		stored.Hash,
	)
}

// CommandAlertList shows the chat's alerts, oldest first.
func (c *Commands) CommandAlertList(ctx context.Context, chatID int64) string {
	hashes, err := c.repo.FetchHashesByUserID(ctx, userIDForChat(chatID), c.config)
	if err != nil {
		log.Errorf("Error fetching alerts for chat %d: %v", chatID, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to fetch alerts. Please try again later."))
	}

	var list strings.Builder
	for _, h := range hashes {
		a, err := c.repo.FetchDetailsByHash(ctx, h, c.config)
		if errors.Is(err, types.ErrNotFound) {
			// triggered since the hashes were listed
			continue
		}
		if err != nil {
			log.Errorf("Error fetching alert %s: %v", h, err)
			continue
		}

		list.WriteString(translation.Translate("▫️ *%s* %s *%s* `%s` %s\n",
			helpers.EscapeMarkdownV2(a.Symbol),
			c.evaluator.Direction(a),
			helpers.FormatPriceUS(a.PriceLevel, true),
			helpers.ShortHash(a.Hash.String()),
			helpers.EscapeMarkdownV2(helpers.FormatAge(a.CreatedAt)),
		))
	}

	if list.Len() == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You have no active alerts."))
	}
	return translation.Translate("*Your alerts:*\n\n") + list.String()
}

// CommandAlertDelete removes one of the chat's own alerts, named by its full
// hash or an unambiguous prefix of it.
func (c *Commands) CommandAlertDelete(ctx context.Context, chatID int64, ref string) string {
	if len(ref) < minHashRef {
		return alertUsage()
	}

	hashes, err := c.repo.FetchHashesByUserID(ctx, userIDForChat(chatID), c.config)
	if err != nil {
		log.Errorf("Error fetching alerts for chat %d: %v", chatID, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to fetch alerts. Please try again later."))
	}

	matches := types.NewHashSet()
	for _, h := range hashes {
		if strings.HasPrefix(h.String(), ref) {
			matches.Add(h)
		}
	}

	switch matches.Len() {
	case 0:
		return translation.Translate("No alert %s among your alerts", helpers.EscapeMarkdownV2(ref))
	case 1:
	default:
		return translation.Translate("%s matches %d of your alerts, send more of the id", helpers.EscapeMarkdownV2(ref), matches.Len())
	}

	if err := c.repo.DeleteAlertsByHashes(ctx, matches, c.config); err != nil {
		log.Errorf("Failed to delete alert %s: %v", ref, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to delete alert. Please try again later."))
	}
	return translation.Translate("🗑 Alert `%s` deleted", matches.Slice()[0])
}

// CommandPrice replies with the oracle's current price for a symbol.
func (c *Commands) CommandPrice(ctx context.Context, args string) string {
	log.Debugf("processing command /p with argument :%s", args)

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /p <symbol>"))
	}
	symbol := types.NormalizeSymbol(fields[0])

	prices, err := c.oracle.FetchPricesForSymbols(ctx, types.NewSymbolSet(symbol))
	if err != nil {
		log.Error(errors.Wrap(err, "command /p"))
		return helpers.EscapeMarkdownV2(translation.Translate("Prices are unavailable right now. Please try again later."))
	}
	p, ok := prices[symbol]
	if !ok {
		return helpers.EscapeMarkdownV2(translation.Translate("Symbol %s not found", symbol))
	}

	return translation.Translate("*%s price:*\n\n▫️`%s` *USD*",
		helpers.EscapeMarkdownV2(symbol),
		helpers.FormatPriceUS(p, false),
	)
}

// FormatTriggered renders the notification for an alert whose level was crossed.
func (c *Commands) FormatTriggered(a types.Alert, price float64) string {
	return translation.Translate("🔔 *%s* is %s *%s*\nprice: `%s`\nid: `%s`",
		helpers.EscapeMarkdownV2(a.Symbol),
		c.evaluator.Direction(a),
		helpers.FormatPriceUS(a.PriceLevel, true),
		helpers.FormatPriceUS(price, false),
		a.Hash,
	)
}

func alertUsage() string {
	return helpers.EscapeMarkdownV2(translation.Translate(
		"Usage: /alert <symbol> <level> [above|below], /alert list or /alert delete <id>",
	))
}

func userIDForChat(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
