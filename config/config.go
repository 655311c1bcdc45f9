package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"

	"trade-alerts/internal/types"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("log_level", "LOG_LEVEL")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("db_path", "DB_PATH")

		viper.BindEnv("oracle", "ORACLE")
		viper.BindEnv("xylex_api_key", "XYLEX_API_KEY")
		viper.BindEnv("xylex_api_endpoint", "XYLEX_API_ENDPOINT")
		viper.BindEnv("oracle_timeout", "ORACLE_TIMEOUT")
		viper.BindEnv("oracle_concurrency", "ORACLE_CONCURRENCY")
		viper.BindEnv("static_prices", "STATIC_PRICES")
		viper.BindEnv("price_cache_ttl", "PRICE_CACHE_TTL")

		viper.BindEnv("check_interval", "CHECK_INTERVAL")
		viper.BindEnv("pass_timeout", "PASS_TIMEOUT")
		viper.BindEnv("default_direction", "DEFAULT_DIRECTION")

		viper.BindEnv("alerts_table", "ALERTS_TABLE")
		viper.BindEnv("hash_column", "HASH_COLUMN")
		viper.BindEnv("price_level_column", "PRICE_LEVEL_COLUMN")
		viper.BindEnv("user_id_column", "USER_ID_COLUMN")
		viper.BindEnv("symbol_column", "SYMBOL_COLUMN")
		viper.BindEnv("direction_column", "DIRECTION_COLUMN")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("db_path", "/app/data/alerts.db")
		viper.SetDefault("oracle", "paprika")
		viper.SetDefault("xylex_api_endpoint", "https://api.xylex.cfd/data/realtime/price")
		viper.SetDefault("oracle_timeout", 10*time.Second)
		viper.SetDefault("oracle_concurrency", 8)
		viper.SetDefault("price_cache_ttl", 30*time.Second)
		viper.SetDefault("check_interval", time.Minute)
		viper.SetDefault("pass_timeout", 30*time.Second)
		viper.SetDefault("default_direction", string(types.DirectionAbove))

		defaults := types.DefaultTableConfig()
		viper.SetDefault("alerts_table", defaults.TableName)
		viper.SetDefault("hash_column", defaults.HashColumnName)
		viper.SetDefault("price_level_column", defaults.PriceLevelColumnName)
		viper.SetDefault("user_id_column", defaults.UserIDColumnName)
		viper.SetDefault("symbol_column", defaults.SymbolColumnName)
		viper.SetDefault("direction_column", defaults.DirectionColumnName)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}

// TableConfig assembles the alert table mapping from the environment.
func TableConfig() types.TableConfig {
	c := types.NewTableConfig(
		GetString("alerts_table"),
		GetString("hash_column"),
		GetString("price_level_column"),
		GetString("user_id_column"),
		GetString("symbol_column"),
	)
	c.DirectionColumnName = GetString("direction_column")
	return c
}

// DefaultDirection is the direction applied to alerts stored without one.
func DefaultDirection() (types.Direction, error) {
	return types.ParseDirection(GetString("default_direction"))
}
