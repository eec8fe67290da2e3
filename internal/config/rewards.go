package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RewardsConfig is the tunable award policy: reaction tag values, bonus
// amounts, and rate limit windows. It reloads from rewards.yml without a
// process restart.
type RewardsConfig struct {
	Reactions    map[string]int64   `mapstructure:"reactions"`
	RateLimit    RateLimitConfig    `mapstructure:"rateLimit"`
	Daily        DailyBonusConfig   `mapstructure:"daily"`
	Introduction IntroductionConfig `mapstructure:"introduction"`
	Invite       InviteConfig       `mapstructure:"invite"`
	Ingest       IngestConfig       `mapstructure:"ingest"`
}

type RateLimitConfig struct {
	DailyLimit        int `mapstructure:"dailyLimit"`
	PerRecipientLimit int `mapstructure:"perRecipientLimit"`
	WindowHours       int `mapstructure:"windowHours"`
}

type DailyBonusConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Amount  int64 `mapstructure:"amount"`
}

type IntroductionConfig struct {
	PostAmount        int64 `mapstructure:"postAmount"`
	StarterAmount     int64 `mapstructure:"starterAmount"`
	ReplyAmount       int64 `mapstructure:"replyAmount"`
	MaxRepliesPerUser int   `mapstructure:"maxRepliesPerUser"`
	ReplyWindowHours  int   `mapstructure:"replyWindowHours"`
}

type InviteConfig struct {
	Amount int64 `mapstructure:"amount"`
}

type IngestConfig struct {
	RatePerSecond      float64 `mapstructure:"ratePerSecond"`
	Burst              int     `mapstructure:"burst"`
	GiverRatePerSecond float64 `mapstructure:"giverRatePerSecond"`
	GiverBurst         int     `mapstructure:"giverBurst"`
}

func DefaultRewardsConfig() RewardsConfig {
	return RewardsConfig{
		Reactions: map[string]int64{
			"helpful": 1,
			"thanks":  1,
		},
		RateLimit: RateLimitConfig{
			DailyLimit:        10,
			PerRecipientLimit: 1,
			WindowHours:       24,
		},
		Daily: DailyBonusConfig{
			Enabled: true,
			Amount:  5,
		},
		Introduction: IntroductionConfig{
			PostAmount:        10,
			StarterAmount:     15,
			ReplyAmount:       2,
			MaxRepliesPerUser: 5,
			ReplyWindowHours:  24,
		},
		Invite: InviteConfig{
			Amount: 10,
		},
		Ingest: IngestConfig{
			RatePerSecond:      25,
			Burst:              50,
			GiverRatePerSecond: 5,
			GiverBurst:         10,
		},
	}
}

// RewardsConfigHolder serves the latest valid policy snapshot. Readers get a
// consistent value even while a reload is in flight.
type RewardsConfigHolder struct {
	current atomic.Value // holds RewardsConfig
}

func NewRewardsConfigHolder() (*RewardsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rewards")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/merit/config")
	v.AddConfigPath("/etc/merit")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MERIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultRewardsConfig()
		v.SetDefault("rewards.reactions", defaults.Reactions)
		v.SetDefault("rewards.rateLimit", defaults.RateLimit)
		v.SetDefault("rewards.daily", defaults.Daily)
		v.SetDefault("rewards.introduction", defaults.Introduction)
		v.SetDefault("rewards.invite", defaults.Invite)
		v.SetDefault("rewards.ingest", defaults.Ingest)
	}

	var cfg RewardsConfig
	if err := v.UnmarshalKey("rewards", &cfg); err != nil {
		return nil, err
	}
	if err := validateRewardsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RewardsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RewardsConfig
		if err := v.UnmarshalKey("rewards", &updated); err != nil {
			log.Printf("[rewards-config] reload failed: %v", err)
			return
		}
		if err := validateRewardsConfig(updated); err != nil {
			log.Printf("[rewards-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rewards-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RewardsConfigHolder) Get() RewardsConfig {
	return h.current.Load().(RewardsConfig)
}

// NewStaticRewardsHolder wraps a fixed policy. Test fixtures use it to skip
// the file watcher.
func NewStaticRewardsHolder(cfg RewardsConfig) *RewardsConfigHolder {
	holder := &RewardsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateRewardsConfig(cfg RewardsConfig) error {
	if len(cfg.Reactions) == 0 {
		return errors.New("rewards.reactions cannot be empty")
	}
	for tag, amount := range cfg.Reactions {
		if strings.TrimSpace(tag) == "" {
			return errors.New("rewards.reactions contains an empty tag")
		}
		if amount == 0 {
			return errors.New("rewards.reactions amounts cannot be zero")
		}
	}
	if cfg.RateLimit.DailyLimit <= 0 {
		return errors.New("rewards.rateLimit.dailyLimit must be positive")
	}
	if cfg.RateLimit.PerRecipientLimit <= 0 {
		return errors.New("rewards.rateLimit.perRecipientLimit must be positive")
	}
	if cfg.RateLimit.WindowHours <= 0 {
		return errors.New("rewards.rateLimit.windowHours must be positive")
	}
	if cfg.Introduction.MaxRepliesPerUser <= 0 {
		return errors.New("rewards.introduction.maxRepliesPerUser must be positive")
	}
	if cfg.Introduction.ReplyWindowHours <= 0 {
		return errors.New("rewards.introduction.replyWindowHours must be positive")
	}
	return nil
}
