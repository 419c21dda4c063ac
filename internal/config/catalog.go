package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/smallbiznis/bizplannaija/internal/pricing"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CatalogHolder serves the current plan table. The table is read from
// plans.yml when one exists and reloaded whenever the file changes.
type CatalogHolder struct {
	current atomic.Pointer[pricing.Catalog]
	source  string
}

func NewCatalogHolder(cfg Config, log *zap.Logger) (*CatalogHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.plans")

	v := viper.New()
	if cfg.PlansConfigPath != "" {
		v.SetConfigFile(cfg.PlansConfigPath)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/bizplannaija")
		v.AddConfigPath(".")
	}

	holder := &CatalogHolder{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		holder.current.Store(pricing.DefaultCatalog())
		holder.source = "builtin"
		log.Info("plans file not found, using built-in plan table")
		return holder, nil
	}

	catalog, err := decodeCatalog(v)
	if err != nil {
		return nil, fmt.Errorf("load plans from %s: %w", v.ConfigFileUsed(), err)
	}
	holder.current.Store(catalog)
	holder.source = v.ConfigFileUsed()
	log.Info("plan table loaded", zap.String("file", holder.source), zap.Int("tiers", len(catalog.Tiers())))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCatalog(v)
		if err != nil {
			log.Warn("invalid plan table ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan table reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticCatalogHolder wraps a fixed catalog.
func NewStaticCatalogHolder(c *pricing.Catalog) *CatalogHolder {
	holder := &CatalogHolder{source: "static"}
	if c == nil {
		c = pricing.DefaultCatalog()
	}
	holder.current.Store(c)
	return holder
}

func (h *CatalogHolder) Catalog() *pricing.Catalog {
	if h == nil {
		return pricing.DefaultCatalog()
	}
	if c := h.current.Load(); c != nil {
		return c
	}
	return pricing.DefaultCatalog()
}

// Source names the file the table came from, or "builtin".
func (h *CatalogHolder) Source() string {
	if h == nil {
		return ""
	}
	return h.source
}

func decodeCatalog(v *viper.Viper) (*pricing.Catalog, error) {
	var tiers []pricing.PricingTier
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		limitDecodeHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.UnmarshalKey("plans", &tiers, hook); err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, errors.New("plans cannot be empty")
	}
	return pricing.NewCatalog(tiers...)
}

var limitType = reflect.TypeOf(pricing.Limit(0))

func limitDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != limitType {
		return data, nil
	}
	return pricing.ParseLimit(data)
}
