package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FunnelConfig holds the business side of the funnel: what is sold, for
// how much, in which languages, and how collected tax maps to the
// bookkeeping system.
type FunnelConfig struct {
	ProductName     string         `mapstructure:"productName"`
	PriceCents      int64          `mapstructure:"priceCents"`
	Currency        string         `mapstructure:"currency"`
	DefaultLanguage string         `mapstructure:"defaultLanguage"`
	Languages       []string       `mapstructure:"languages"`
	RetentionDays   int            `mapstructure:"retentionDays"`
	Tax             TaxTableConfig `mapstructure:"tax"`
}

// TaxTableConfig maps observed tax rates to bookkeeping tax identifiers.
type TaxTableConfig struct {
	ReverseChargeCode string          `mapstructure:"reverseChargeCode"`
	ZeroRateCode      string          `mapstructure:"zeroRateCode"`
	Rates             []TaxRateConfig `mapstructure:"rates"`
}

type TaxRateConfig struct {
	Country     string  `mapstructure:"country"`
	RatePercent float64 `mapstructure:"ratePercent"`
	Code        string  `mapstructure:"code"`
	Reduced     bool    `mapstructure:"reduced"`
}

func DefaultFunnelConfig() FunnelConfig {
	return FunnelConfig{
		ProductName:     "One handcrafted joke",
		PriceCents:      599,
		Currency:        "eur",
		DefaultLanguage: "en",
		Languages:       []string{"en", "de", "fr"},
		RetentionDays:   90,
		Tax: TaxTableConfig{
			ReverseChargeCode: "EU_REVERSE_CHARGE",
			ZeroRateCode:      "NO_TAX",
			Rates: []TaxRateConfig{
				{Country: "DE", RatePercent: 19, Code: "DE_VAT_STANDARD"},
				{Country: "DE", RatePercent: 7, Code: "DE_VAT_REDUCED", Reduced: true},
				{Country: "AT", RatePercent: 20, Code: "AT_VAT_STANDARD"},
				{Country: "FR", RatePercent: 20, Code: "FR_VAT_STANDARD"},
			},
		},
	}
}

// FunnelConfigHolder exposes the current funnel config with hot reload.
type FunnelConfigHolder struct {
	current atomic.Value // holds FunnelConfig
}

func NewFunnelConfigHolder() (*FunnelConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("funnel")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/punchline")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PUNCHLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFunnelConfig()
		v.SetDefault("funnel.productName", defaults.ProductName)
		v.SetDefault("funnel.priceCents", defaults.PriceCents)
		v.SetDefault("funnel.currency", defaults.Currency)
		v.SetDefault("funnel.defaultLanguage", defaults.DefaultLanguage)
		v.SetDefault("funnel.languages", defaults.Languages)
		v.SetDefault("funnel.retentionDays", defaults.RetentionDays)
		v.SetDefault("funnel.tax", defaults.Tax)
	}

	var cfg FunnelConfig
	if err := v.UnmarshalKey("funnel", &cfg); err != nil {
		return nil, err
	}
	if err := validateFunnelConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FunnelConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FunnelConfig
		if err := v.UnmarshalKey("funnel", &updated); err != nil {
			log.Printf("[funnel-config] reload failed: %v", err)
			return
		}
		if err := validateFunnelConfig(updated); err != nil {
			log.Printf("[funnel-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[funnel-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFunnelConfigHolder wraps a fixed config, bypassing file
// lookup. Intended for tests.
func NewStaticFunnelConfigHolder(cfg FunnelConfig) *FunnelConfigHolder {
	holder := &FunnelConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *FunnelConfigHolder) Get() FunnelConfig {
	return h.current.Load().(FunnelConfig)
}

func validateFunnelConfig(cfg FunnelConfig) error {
	if cfg.PriceCents <= 0 {
		return errors.New("funnel.priceCents must be positive")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("funnel.currency cannot be empty")
	}
	if strings.TrimSpace(cfg.DefaultLanguage) == "" {
		return errors.New("funnel.defaultLanguage cannot be empty")
	}
	if cfg.RetentionDays <= 0 {
		return errors.New("funnel.retentionDays must be positive")
	}
	return nil
}
