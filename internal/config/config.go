package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Storage     StorageConfig
	Audio       AudioConfig
	Separation  SeparationConfig
	Diarization DiarizationConfig
	Worker      WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	UploadPerHour  int
	AnalyzePerHour int
	RenderPerMin   int
}

type StorageConfig struct {
	UploadDir string
	OutputDir string
}

type AudioConfig struct {
	SampleRate     int
	MaxFileSizeMB  int
	AllowedFormats []string
	FFmpegBin      string
}

// SeparationConfig is the explicit model configuration for the source
// separation adapter. It is constructed here and handed to the adapter;
// nothing else in the system knows about model names or devices.
type SeparationConfig struct {
	Binary string
	Model  string
	Device string
}

// DiarizationConfig points at the diarization sidecar service.
type DiarizationConfig struct {
	ServiceURL  string
	Model       string
	MinSpeakers int
	MaxSpeakers int
	Timeout     int // seconds
}

type WorkerConfig struct {
	Concurrency    int
	TimeoutFactor  float64 // analysis ceiling = max(TimeoutMinSecs, factor * input duration)
	TimeoutMinSecs int
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("storage.upload_dir", "UPLOAD_DIR")
	_ = viper.BindEnv("storage.output_dir", "OUTPUT_DIR")
	_ = viper.BindEnv("audio.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("separation.binary", "DEMUCS_BIN")
	_ = viper.BindEnv("separation.model", "DEMUCS_MODEL")
	_ = viper.BindEnv("separation.device", "DEMUCS_DEVICE")
	_ = viper.BindEnv("diarization.service_url", "DIARIZATION_SERVICE_URL")
	_ = viper.BindEnv("diarization.model", "DIARIZATION_MODEL")
	_ = viper.BindEnv("diarization.timeout", "DIARIZATION_TIMEOUT")
	_ = viper.BindEnv("diarization.min_speakers", "DIARIZATION_MIN_SPEAKERS")
	_ = viper.BindEnv("diarization.max_speakers", "DIARIZATION_MAX_SPEAKERS")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = viper.BindEnv("ratelimit.analyze_per_hour", "RATELIMIT_ANALYZE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.render_per_min", "RATELIMIT_RENDER_PER_MIN")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.analyze_per_hour", 20)
	viper.SetDefault("ratelimit.render_per_min", 60)
	viper.SetDefault("storage.upload_dir", "/tmp/voxsplit/uploads")
	viper.SetDefault("storage.output_dir", "/tmp/voxsplit/outputs")
	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.max_file_size_mb", 500)
	viper.SetDefault("audio.allowed_formats", []string{"mp3", "wav", "m4a", "flac", "ogg", "aac"})
	viper.SetDefault("audio.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("separation.binary", "demucs")
	viper.SetDefault("separation.model", "htdemucs")
	viper.SetDefault("separation.device", "cpu")
	viper.SetDefault("diarization.service_url", "http://localhost:8084")
	viper.SetDefault("diarization.model", "pyannote/speaker-diarization-3.1")
	viper.SetDefault("diarization.min_speakers", 1)
	viper.SetDefault("diarization.max_speakers", 10)
	viper.SetDefault("diarization.timeout", 600)
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.timeout_factor", 6.0)
	viper.SetDefault("worker.timeout_min_secs", 600)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour:  viper.GetInt("ratelimit.upload_per_hour"),
			AnalyzePerHour: viper.GetInt("ratelimit.analyze_per_hour"),
			RenderPerMin:   viper.GetInt("ratelimit.render_per_min"),
		},
		Storage: StorageConfig{
			UploadDir: viper.GetString("storage.upload_dir"),
			OutputDir: viper.GetString("storage.output_dir"),
		},
		Audio: AudioConfig{
			SampleRate:     viper.GetInt("audio.sample_rate"),
			MaxFileSizeMB:  viper.GetInt("audio.max_file_size_mb"),
			AllowedFormats: viper.GetStringSlice("audio.allowed_formats"),
			FFmpegBin:      viper.GetString("audio.ffmpeg_bin"),
		},
		Separation: SeparationConfig{
			Binary: viper.GetString("separation.binary"),
			Model:  viper.GetString("separation.model"),
			Device: viper.GetString("separation.device"),
		},
		Diarization: DiarizationConfig{
			ServiceURL:  viper.GetString("diarization.service_url"),
			Model:       viper.GetString("diarization.model"),
			MinSpeakers: viper.GetInt("diarization.min_speakers"),
			MaxSpeakers: viper.GetInt("diarization.max_speakers"),
			Timeout:     viper.GetInt("diarization.timeout"),
		},
		Worker: WorkerConfig{
			Concurrency:    viper.GetInt("worker.concurrency"),
			TimeoutFactor:  viper.GetFloat64("worker.timeout_factor"),
			TimeoutMinSecs: viper.GetInt("worker.timeout_min_secs"),
		},
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}
