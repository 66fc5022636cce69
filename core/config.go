package core

import (
	"fmt"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendNanoBanana = "nanobanana"
	BackendSeedream   = "seedream"
)

const (
	StorageMongo  = "mongo"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageNone   = "none"
)

type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	TelegramApiKey  string `yaml:"telegram_api_key" env:"TELEGRAM_API_KEY" env-default:""`
	Backend         string `yaml:"backend" env:"BACKEND" env-default:"nanobanana"`
	NanoBananaKey   string `yaml:"nano_banana_api_key" env:"NANO_BANANA_API_KEY" env-default:""`
	SeedreamKey     string `yaml:"seedream_api_key" env:"SEEDREAM_API_KEY" env-default:""`
	RefundOnFailure bool   `yaml:"refund_on_failure" env-default:"false"`
	Listen          string `yaml:"listen" env:"LISTEN" env-default:":3000"`
	Storage         struct {
		Mode       string `yaml:"mode" env:"STORAGE_MODE" env-default:"memory"`
		SQLitePath string `yaml:"sqlite_path" env-default:"accounts.db"`
		Mongo      struct {
			Host     string `yaml:"host" env-default:"127.0.0.1"`
			Port     string `yaml:"port" env-default:"27017"`
			User     string `yaml:"user" env-default:"admin"`
			Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
			Database string `yaml:"database" env-default:""`
		} `yaml:"mongo"`
	} `yaml:"storage"`
	Stripe struct {
		SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY" env-default:""`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
		SuccessURL    string `yaml:"success_url" env-default:"https://t.me/avatarelitebot?start=payment_success"`
		CancelURL     string `yaml:"cancel_url" env-default:"https://t.me/avatarelitebot?start=payment_cancel"`
	} `yaml:"stripe"`
}

var instance *Config
var once sync.Once

func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			return
		}
		err = instance.validate()
		if err != nil {
			instance = nil
		}
	})
	return instance, err
}

func MustLoad(path string) *Config {
	conf, err := GetConfig(path)
	if err != nil {
		panic(err)
	}
	return conf
}

// validate catches fatal configuration problems at process start
func (c *Config) validate() error {
	if c.TelegramApiKey == "" {
		return fmt.Errorf("config: telegram_api_key is required")
	}
	switch c.Backend {
	case BackendNanoBanana:
		if c.NanoBananaKey == "" {
			return fmt.Errorf("config: nano_banana_api_key is required for backend %q", c.Backend)
		}
	case BackendSeedream:
		if c.SeedreamKey == "" {
			return fmt.Errorf("config: seedream_api_key is required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Storage.Mode {
	case StorageMongo, StorageSQLite, StorageMemory, StorageNone:
	default:
		return fmt.Errorf("config: unknown storage mode %q", c.Storage.Mode)
	}
	return nil
}

func (c *Config) MongoURI() string {
	m := c.Storage.Mongo
	return fmt.Sprintf("mongodb://%s:%s@%s:%s", m.User, m.Password, m.Host, m.Port)
}
