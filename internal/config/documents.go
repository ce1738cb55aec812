package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/money"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DocumentDefaults are the user-editable settings applied to new invoices
// and rendered documents.
type DocumentDefaults struct {
	PaymentTermDays  int             `mapstructure:"paymentTermDays"`
	Currency         string          `mapstructure:"currency"`
	TaxRate          decimal.Decimal `mapstructure:"-"`
	RawTaxRate       string          `mapstructure:"taxRate"`
	ReminderLeadDays int             `mapstructure:"reminderLeadDays"`
	PDFCompression   bool            `mapstructure:"pdfCompression"`
	FooterText       string          `mapstructure:"footerText"`
}

func DefaultDocumentDefaults() DocumentDefaults {
	return DocumentDefaults{
		PaymentTermDays:  30,
		Currency:         money.DefaultCurrency,
		TaxRate:          decimal.Zero,
		RawTaxRate:       "0",
		ReminderLeadDays: 3,
		PDFCompression:   true,
	}
}

// DocumentDefaultsSource supplies the current document defaults.
type DocumentDefaultsSource interface {
	Get() DocumentDefaults
}

// DocumentDefaultsHolder keeps the last valid folio.yml contents and swaps
// them when the file changes.
type DocumentDefaultsHolder struct {
	v       *viper.Viper
	log     *zap.Logger
	current atomic.Value // holds DocumentDefaults
}

// StaticDefaults is a fixed DocumentDefaultsSource.
type StaticDefaults DocumentDefaults

func (s StaticDefaults) Get() DocumentDefaults { return DocumentDefaults(s) }

func NewDocumentDefaultsHolder(cfg Config, log *zap.Logger) (*DocumentDefaultsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	v.SetConfigName("folio")
	v.SetConfigType("yml")
	v.AddConfigPath(cfg.ConfigDir)
	v.AddConfigPath(".")

	defaults := DefaultDocumentDefaults()
	v.SetDefault("documents.paymentTermDays", defaults.PaymentTermDays)
	v.SetDefault("documents.currency", defaults.Currency)
	v.SetDefault("documents.taxRate", defaults.RawTaxRate)
	v.SetDefault("documents.reminderLeadDays", defaults.ReminderLeadDays)
	v.SetDefault("documents.pdfCompression", defaults.PDFCompression)

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read folio.yml: %w", err)
		}
		found = false
	}

	holder := &DocumentDefaultsHolder{v: v, log: log.Named("config")}
	if err := holder.reload(); err != nil {
		return nil, err
	}

	if found {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.reload(); err != nil {
				holder.log.Warn("invalid folio.yml ignored", zap.String("path", e.Name), zap.Error(err))
				return
			}
			holder.log.Info("document defaults reloaded", zap.String("path", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *DocumentDefaultsHolder) Get() DocumentDefaults {
	return h.current.Load().(DocumentDefaults)
}

func (h *DocumentDefaultsHolder) reload() error {
	var file struct {
		Documents DocumentDefaults `mapstructure:"documents"`
	}
	if err := h.v.Unmarshal(&file); err != nil {
		return err
	}
	if err := normalizeDocumentDefaults(&file.Documents); err != nil {
		return err
	}
	h.current.Store(file.Documents)
	return nil
}

func normalizeDocumentDefaults(cfg *DocumentDefaults) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.RawTaxRate))
	if err != nil {
		return fmt.Errorf("documents.taxRate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("documents.taxRate must be between 0 and 100")
	}
	cfg.TaxRate = rate

	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if len(cfg.Currency) != 3 {
		return errors.New("documents.currency must be a 3-letter code")
	}
	if cfg.PaymentTermDays < 0 {
		return errors.New("documents.paymentTermDays cannot be negative")
	}
	if cfg.ReminderLeadDays < 0 {
		return errors.New("documents.reminderLeadDays cannot be negative")
	}
	return nil
}
