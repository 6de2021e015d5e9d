package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirinyoku/party-rsvp/internal/domain"
	"github.com/kirinyoku/party-rsvp/internal/pricing"
)

// EventConfig describes the party itself. It is read from a YAML file and
// falls back to defaults for anything left out.
type EventConfig struct {
	Name            string
	Date            time.Time
	Deadline        time.Time
	BusCapacity     int
	Prices          pricing.Prices
	PaymentURL      string
	RedirectSeconds int
}

type eventFile struct {
	Name            string    `yaml:"name"`
	Date            time.Time `yaml:"date"`
	Deadline        time.Time `yaml:"deadline"`
	BusCapacity     int       `yaml:"bus_capacity"`
	PaymentURL      string    `yaml:"payment_url"`
	RedirectSeconds int       `yaml:"redirect_seconds"`
	Prices          struct {
		Adult     string `yaml:"adult"`
		Child     string `yaml:"child"`
		Transport string `yaml:"transport"`
	} `yaml:"prices"`
}

func DefaultEvent() EventConfig {
	return EventConfig{
		Name:            "End of year party",
		BusCapacity:     90,
		Prices:          pricing.DefaultPrices,
		RedirectSeconds: 6,
	}
}

// LoadEvent reads path. An empty path or a missing file yields DefaultEvent.
func LoadEvent(path string) (EventConfig, error) {
	const op = "config.LoadEvent"

	cfg := DefaultEvent()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%s:%w", op, err)
	}

	var f eventFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return cfg, fmt.Errorf("%s: %s: %w", op, path, err)
	}

	if f.Name != "" {
		cfg.Name = f.Name
	}
	cfg.Date = f.Date
	cfg.Deadline = f.Deadline
	if f.BusCapacity > 0 {
		cfg.BusCapacity = f.BusCapacity
	}
	cfg.PaymentURL = f.PaymentURL
	if f.RedirectSeconds > 0 {
		cfg.RedirectSeconds = f.RedirectSeconds
	}

	for _, p := range []struct {
		field string
		raw   string
		dst   *domain.Cents
	}{
		{"prices.adult", f.Prices.Adult, &cfg.Prices.AdultPass},
		{"prices.child", f.Prices.Child, &cfg.Prices.ChildPass},
		{"prices.transport", f.Prices.Transport, &cfg.Prices.TransportSeat},
	} {
		if p.raw == "" {
			continue
		}
		c, err := domain.ParseCents(p.raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %s: %w", op, p.field, err)
		}
		// The calculator treats a non-positive price as unset.
		if c <= 0 {
			return cfg, fmt.Errorf("%s: %s must be positive", op, p.field)
		}
		*p.dst = c
	}

	return cfg, nil
}
