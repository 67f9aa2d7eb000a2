package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	QPay struct {
		BaseURL      string `yaml:"base_url"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		InvoiceCode  string `yaml:"invoice_code"`
		ReceiverCode string `yaml:"receiver_code"`
		CallbackURL  string `yaml:"callback_url"`
	} `yaml:"qpay"`
	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"storage"`
	JWTSecret string `yaml:"jwt_secret"`
	FCM       struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"fcm"`
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv lets secrets come from the environment instead of the yaml file.
func (c *Config) applyEnv() {
	setFromEnv(&c.Database.URL, "DATABASE_URL")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&c.QPay.Username, "QPAY_USERNAME")
	setFromEnv(&c.QPay.Password, "QPAY_PASSWORD")
	setFromEnv(&c.QPay.InvoiceCode, "QPAY_INVOICE_CODE")
	setFromEnv(&c.QPay.ReceiverCode, "QPAY_RECEIVER_CODE")
	setFromEnv(&c.QPay.CallbackURL, "QPAY_CALLBACK_URL")
	setFromEnv(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	setFromEnv(&c.Storage.SecretKey, "S3_SECRET_KEY")
	setFromEnv(&c.Storage.Bucket, "S3_BUCKET")
	setFromEnv(&c.Storage.Endpoint, "S3_ENDPOINT")
	setFromEnv(&c.JWTSecret, "JWT_SECRET")
	setFromEnv(&c.FCM.CredentialsFile, "FCM_CREDENTIALS_FILE")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
