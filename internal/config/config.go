package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		HTTPAddr    string `mapstructure:"http_addr"`
		MetricsPort string `mapstructure:"metrics_port"`
		LogLevel    string `mapstructure:"log_level"`
		CORSOrigin  string `mapstructure:"cors_origin"`
	} `mapstructure:"server"`
	Auth struct {
		JWTSecret          string `mapstructure:"jwt_secret"`
		TokenTTLHours      int    `mapstructure:"token_ttl_hours"`
		SeedDoctorEmail    string `mapstructure:"seed_doctor_email"`
		SeedDoctorPassword string `mapstructure:"seed_doctor_password"`
	} `mapstructure:"auth"`
	Database struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		Path     string `mapstructure:"path"` // sqlite file when driver=sqlite
	} `mapstructure:"database"`
	Storage struct {
		Provider  string `mapstructure:"provider"` // local or s3
		LocalRoot string `mapstructure:"local_root"`
		Bucket    string `mapstructure:"bucket"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		KeyID     string `mapstructure:"key_id"`
		AppKey    string `mapstructure:"app_key"`
	} `mapstructure:"storage"`
	Model struct {
		ExtractorPath string `mapstructure:"extractor_path"`
		ManifestPath  string `mapstructure:"manifest_path"`
	} `mapstructure:"model"`
	Email struct {
		SMTPHost  string `mapstructure:"smtp_host"`
		SMTPPort  int    `mapstructure:"smtp_port"`
		SMTPUser  string `mapstructure:"smtp_user"`
		SMTPPass  string `mapstructure:"smtp_pass"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
}

func Load() *Config {
	viper.SetEnvPrefix("BIOSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.http_addr")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.log_level")
	viper.BindEnv("server.cors_origin")

	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.token_ttl_hours")
	viper.BindEnv("auth.seed_doctor_email")
	viper.BindEnv("auth.seed_doctor_password")

	viper.BindEnv("database.driver")
	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")
	viper.BindEnv("database.path")

	viper.BindEnv("storage.provider")
	viper.BindEnv("storage.local_root")
	viper.BindEnv("storage.bucket")
	viper.BindEnv("storage.endpoint")
	viper.BindEnv("storage.region")
	viper.BindEnv("storage.key_id")
	viper.BindEnv("storage.app_key")

	viper.BindEnv("model.extractor_path")
	viper.BindEnv("model.manifest_path")

	viper.BindEnv("email.smtp_host")
	viper.BindEnv("email.smtp_port")
	viper.BindEnv("email.smtp_user")
	viper.BindEnv("email.smtp_pass")
	viper.BindEnv("email.from_email")

	// Defaults
	viper.SetDefault("server.http_addr", ":8000")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.cors_origin", "http://localhost:3000")

	viper.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	viper.SetDefault("auth.token_ttl_hours", 24)
	viper.SetDefault("auth.seed_doctor_email", "doctor@bioscan.local")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.name", "bioscan")
	viper.SetDefault("database.path", "bioscan.db")

	viper.SetDefault("storage.provider", "local")
	viper.SetDefault("storage.local_root", "./data")
	viper.SetDefault("storage.bucket", "uploads")
	viper.SetDefault("storage.region", "us-east-1")

	viper.SetDefault("model.extractor_path", "xray_classifier")
	viper.SetDefault("model.manifest_path", "model_manifest.yaml")

	viper.SetDefault("email.smtp_port", 587)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if cfg.Storage.Provider == "s3" && cfg.Storage.KeyID == "" {
		log.Fatal("Critical: S3 KeyID is missing (BIOSCAN_STORAGE_KEY_ID)")
	}

	return &cfg
}
