package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stockledger/inventory-service/pkg/utils"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Postgres  PG        `yaml:"postgres"`
	Kafka     Kafka     `yaml:"kafka"`
	Redis     Redis     `yaml:"redis"`
	Inventory Inventory `yaml:"inventory"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Kafka struct {
	Brokers          []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID          string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"inventory-service-group"`
	OrderTopic       string   `yaml:"order_topic" env-default:"order_events"`
	ReservationTopic string   `yaml:"reservation_topic" env-default:"reservation_commands"`
	AdminTopic       string   `yaml:"admin_topic" env-default:"inventory_commands"`
	InventoryTopic   string   `yaml:"inventory_topic" env-default:"inventory_events"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Inventory struct {
	DefaultWarehouse string        `yaml:"default_warehouse" env:"DEFAULT_WAREHOUSE" env-default:"WH-DEFAULT"`
	CacheTTL         time.Duration `yaml:"cache_ttl" env-default:"30s"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
