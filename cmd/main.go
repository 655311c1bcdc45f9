package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"trade-alerts/config"
	"trade-alerts/internal/alert"
	"trade-alerts/internal/database"
	"trade-alerts/internal/metrics"
	"trade-alerts/internal/price"
	"trade-alerts/internal/telegram"
	"trade-alerts/lib/translation"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	translation.Configure("locales", config.GetString("lang"))

	tableConfig := config.TableConfig()
	store, err := database.InitDB(config.GetString("db_path"), tableConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.CloseDB()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	m.LoadFromDB(store)

	oracle, err := newOracle(config.GetString("oracle"))
	if err != nil {
		log.Fatalf("Failed to create price oracle: %v", err)
	}

	defaultDirection, err := config.DefaultDirection()
	if err != nil {
		log.Fatalf("Invalid DEFAULT_DIRECTION: %v", err)
	}
	evaluator := alert.NewEvaluator(defaultDirection)
	reconciler := alert.NewReconciler(oracle, evaluator)

	var notifier alert.Notifier
	if token := config.GetString("telegram_bot_token"); token != "" {
		cached := price.NewCachedOracle(oracle, config.GetDuration("price_cache_ttl"))
		commands := telegram.NewCommands(store, cached, evaluator, tableConfig, m)
		bot, err := telegram.NewBot(telegram.BotConfig{
			Token:          token,
			Debug:          config.GetBool("debug"),
			UpdatesTimeout: 60,
		}, commands)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}

		updates, err := bot.GetUpdatesChannel()
		if err != nil {
			log.Fatalf("Failed to get updates channel: %v", err)
		}
		go handleUpdates(ctx, bot, updates, m)
		notifier = bot
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN is not set, triggered alerts will only be logged")
	}

	service := alert.NewService(store, reconciler, tableConfig, notifier, m, config.GetDuration("check_interval"))
	service.PassTimeout = config.GetDuration("pass_timeout")
	go service.Run(ctx)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SaveToDB(store)
			}
		}
	}()

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	<-ctx.Done()
	m.SaveToDB(store)
	log.Info("Metrics saved, shutting down...")
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if level := config.GetString("log_level"); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			log.Errorf("Ignoring LOG_LEVEL %q: %v", level, err)
		} else {
			log.SetLevel(parsed)
		}
	}
	log.Debug("Starting trade alerts...")
}

func newOracle(kind string) (alert.PriceOracle, error) {
	switch kind {
	case "paprika":
		return price.NewPaprikaOracle(config.GetString("api_pro_key")), nil
	case "http":
		return price.NewHTTPOracle(
			config.GetString("xylex_api_key"),
			config.GetString("xylex_api_endpoint"),
			config.GetDuration("oracle_timeout"),
			config.GetInt("oracle_concurrency"),
		), nil
	case "static":
		prices, err := price.ParseStaticPrices(config.GetString("static_prices"))
		if err != nil {
			return nil, err
		}
		return prices, nil
	}
	return nil, errors.Errorf("unknown oracle %q, expected paprika, http or static", kind)
}

func handleUpdates(ctx context.Context, bot *telegram.Bot, updates tgbotapi.UpdatesChannel, m *metrics.Metrics) {
	for {
		var update tgbotapi.Update
		select {
		case <-ctx.Done():
			bot.Bot.StopReceivingUpdates()
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			update = u
		}

		if update.Message == nil {
			log.Debug("Received non-message or non-command")
			continue
		}
		if !update.Message.IsCommand() {
			continue
		}

		m.MessageHandled()
		handleCommand(ctx, bot, update, m)
	}
}

func handleCommand(ctx context.Context, bot *telegram.Bot, update tgbotapi.Update, m *metrics.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      bot.HandleUpdate(ctx, update),
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		m.CommandProcessed()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}
