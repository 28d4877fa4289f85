package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Downloads DownloadsConfig
	Tools     ToolsConfig
	History   HistoryConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DownloadsConfig struct {
	Dir             string
	JobTimeout      time.Duration
	CleanupSchedule string // cron spec for periodic janitor sweeps, empty disables
}

type ToolsConfig struct {
	YtdlpPath  string
	FfmpegPath string
	UserAgent  string
}

type HistoryConfig struct {
	DBPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	ProcessPerHour int
	MetadataPerMin int
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("downloads.dir", "DOWNLOADS_DIR")
	_ = viper.BindEnv("downloads.job_timeout", "JOB_TIMEOUT")
	_ = viper.BindEnv("downloads.cleanup_schedule", "CLEANUP_SCHEDULE")
	_ = viper.BindEnv("tools.ytdlp_path", "YTDLP_PATH")
	_ = viper.BindEnv("tools.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("tools.user_agent", "YTDLP_USER_AGENT")
	_ = viper.BindEnv("history.db_path", "HISTORY_DB_PATH")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.process_per_hour", "RATELIMIT_PROCESS_PER_HOUR")
	_ = viper.BindEnv("ratelimit.metadata_per_min", "RATELIMIT_METADATA_PER_MIN")

	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("downloads.dir", "downloads")
	viper.SetDefault("downloads.job_timeout", "30m")
	viper.SetDefault("downloads.cleanup_schedule", "@every 15m")
	viper.SetDefault("tools.ytdlp_path", "yt-dlp")
	viper.SetDefault("tools.ffmpeg_path", "ffmpeg")
	viper.SetDefault("tools.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	viper.SetDefault("history.db_path", "downloads.db")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.process_per_hour", 60)
	viper.SetDefault("ratelimit.metadata_per_min", 30)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Downloads: DownloadsConfig{
			Dir:             viper.GetString("downloads.dir"),
			JobTimeout:      viper.GetDuration("downloads.job_timeout"),
			CleanupSchedule: viper.GetString("downloads.cleanup_schedule"),
		},
		Tools: ToolsConfig{
			YtdlpPath:  viper.GetString("tools.ytdlp_path"),
			FfmpegPath: viper.GetString("tools.ffmpeg_path"),
			UserAgent:  viper.GetString("tools.user_agent"),
		},
		History: HistoryConfig{
			DBPath: viper.GetString("history.db_path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			ProcessPerHour: viper.GetInt("ratelimit.process_per_hour"),
			MetadataPerMin: viper.GetInt("ratelimit.metadata_per_min"),
		},
	}

	return cfg, nil
}
