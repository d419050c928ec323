package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"aidmap"`
}

// InviteConfig controls the referral gate. AdminEmail is the bootstrap
// identity that signs up without a code and receives AdminLimit invites.
type InviteConfig struct {
	AdminEmail   string `yaml:"admin_email" env:"INVITE_ADMIN_EMAIL" env-default:""`
	DefaultLimit int    `yaml:"default_limit" env-default:"5"`
	AdminLimit   int    `yaml:"admin_limit" env-default:"999"`
}

type PostsConfig struct {
	DailyLimit int `yaml:"daily_limit" env-default:"3"`
}

// SweepConfig carries the shared secret the cron trigger must present.
type SweepConfig struct {
	Secret string `yaml:"secret" env:"SWEEP_SECRET" env-default:""`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatId  int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID" env-default:"0"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Invite   InviteConfig   `yaml:"invite"`
	Posts    PostsConfig    `yaml:"posts"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Telegram TelegramConfig `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
