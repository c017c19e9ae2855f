package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBAutoMigrate   bool          `mapstructure:"DB_AUTO_MIGRATE"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	MLServiceURL    string        `mapstructure:"ML_SERVICE_URL"`
	MLTimeout       time.Duration `mapstructure:"ML_TIMEOUT"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFile         string        `mapstructure:"LOG_FILE"`
	PredictionTTLMS int64         `mapstructure:"PREDICTION_TTL_MS"`
	// FractionThreshold separates 0-1 fractions from 0-100 percentages in raw scores.
	FractionThreshold     float64 `mapstructure:"SCORE_FRACTION_THRESHOLD"`
	PredictDedupeInflight bool    `mapstructure:"PREDICT_DEDUPE_INFLIGHT"`
	TrendDays             int     `mapstructure:"TREND_DAYS"`
}

func (c Config) PredictionTTL() time.Duration {
	return time.Duration(c.PredictionTTLMS) * time.Millisecond
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("ML_SERVICE_URL", "")
	v.SetDefault("ML_TIMEOUT", "30s")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("PREDICTION_TTL_MS", 300000)
	v.SetDefault("SCORE_FRACTION_THRESHOLD", 1.5)
	v.SetDefault("PREDICT_DEDUPE_INFLIGHT", false)
	v.SetDefault("TREND_DAYS", 14)
}
