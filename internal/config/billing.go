package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries shop-level billing settings. Rates are decimal strings
// so the file never goes through float parsing.
type BillingConfig struct {
	NumberTemplate      string        `mapstructure:"numberTemplate"`
	MakingChargePercent string        `mapstructure:"makingChargePercent"`
	GSTPercent          string        `mapstructure:"gstPercent"`
	VATPercent          string        `mapstructure:"vatPercent"`
	Company             CompanyConfig `mapstructure:"company"`
	FooterNote          string        `mapstructure:"footerNote"`
}

// CompanyConfig is the letterhead printed on every bill.
type CompanyConfig struct {
	Name         string   `mapstructure:"name"`
	ShortName    string   `mapstructure:"shortName"`
	AddressLines []string `mapstructure:"addressLines"`
	Phone        string   `mapstructure:"phone"`
	GSTIN        string   `mapstructure:"gstin"`
	StateCode    string   `mapstructure:"stateCode"`
	Email        string   `mapstructure:"email"`
	LogoPath     string   `mapstructure:"logoPath"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		NumberTemplate:      "PJ/{YYYY}{MM}{DD}-{SEQ3}",
		MakingChargePercent: "12",
		GSTPercent:          "3",
		VATPercent:          "10",
		Company: CompanyConfig{
			Name:      "PALANIAPPA JEWELLERS",
			ShortName: "PALANIAPPA",
			AddressLines: []string{
				"AVK ARCADE 315 C",
				"HOSUR MAIN ROAD OPP NEW BUS STAND",
				"SALEM, TAMIL NADU",
				"PINCODE : 636003",
			},
			Phone:     "+91 427-2333324",
			GSTIN:     "33AAACT5712A1Z4",
			StateCode: "33 (Tamil Nadu)",
			Email:     "jewelerypalaniappa@gmail.com",
			LogoPath:  "./assets/logo.png",
		},
		FooterNote: "Thank you for your business!",
	}
}

// MakingPercent returns the parsed making charge percentage.
func (c BillingConfig) MakingPercent() decimal.Decimal {
	return mustPercent(c.MakingChargePercent)
}

func (c BillingConfig) GSTRate() decimal.Decimal {
	return mustPercent(c.GSTPercent)
}

func (c BillingConfig) VATRate() decimal.Decimal {
	return mustPercent(c.VATPercent)
}

func mustPercent(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config, mostly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewBillingConfigHolder loads billing.yml from the standard locations and
// keeps it current while the file changes.
func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	return loadBillingConfig(log, "/var/lib/jewelbill/config", "/etc/jewelbill", ".")
}

func loadBillingConfig(log *zap.Logger, paths ...string) (*BillingConfigHolder, error) {
	log = log.Named("billing.config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("JEWELBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setBillingDefaults(v, DefaultBillingConfig())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeBilling(v)
	if err != nil {
		return nil, err
	}
	if err := ValidateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileLoaded {
		log.Info("billing.yml not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBilling(v)
		if err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// setBillingDefaults registers every leaf so a partial billing.yml keeps the
// remaining defaults.
func setBillingDefaults(v *viper.Viper, d BillingConfig) {
	v.SetDefault("billing.numberTemplate", d.NumberTemplate)
	v.SetDefault("billing.makingChargePercent", d.MakingChargePercent)
	v.SetDefault("billing.gstPercent", d.GSTPercent)
	v.SetDefault("billing.vatPercent", d.VATPercent)
	v.SetDefault("billing.footerNote", d.FooterNote)
	v.SetDefault("billing.company.name", d.Company.Name)
	v.SetDefault("billing.company.shortName", d.Company.ShortName)
	v.SetDefault("billing.company.addressLines", d.Company.AddressLines)
	v.SetDefault("billing.company.phone", d.Company.Phone)
	v.SetDefault("billing.company.gstin", d.Company.GSTIN)
	v.SetDefault("billing.company.stateCode", d.Company.StateCode)
	v.SetDefault("billing.company.email", d.Company.Email)
	v.SetDefault("billing.company.logoPath", d.Company.LogoPath)
}

func decodeBilling(v *viper.Viper) (BillingConfig, error) {
	var file struct {
		Billing BillingConfig `mapstructure:"billing"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return BillingConfig{}, err
	}
	return file.Billing, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// ValidateBillingConfig rejects settings that would produce invalid bills.
func ValidateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.NumberTemplate) == "" {
		return errors.New("billing.numberTemplate cannot be empty")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return errors.New("billing.numberTemplate must contain a {SEQ} token")
	}
	for key, raw := range map[string]string{
		"makingChargePercent": cfg.MakingChargePercent,
		"gstPercent":          cfg.GSTPercent,
		"vatPercent":          cfg.VATPercent,
	} {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("billing.%s: %w", key, err)
		}
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("billing.%s must be between 0 and 100", key)
		}
	}
	if strings.TrimSpace(cfg.Company.Name) == "" {
		return errors.New("billing.company.name cannot be empty")
	}
	return nil
}
