// Package domain contains the core domain models for ZapCatalog.
// These types serve as the Single Source of Truth (SSOT) for all layers of
// the application: the codec serializes them, the HTTP layer binds them and
// the persisted store saves them.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultCategory is the bucket products without an explicit category fall into.
const DefaultCategory = "Geral"

// validate is the shared validator instance for domain types.
var validate = newValidator()

var (
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
	hhmmRe   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// phone numbers are stored digits-only with the country code prefixed,
	// e.g. "5511999999999"
	_ = v.RegisterValidation("digitsonly", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	// time-of-day strings are 24-hour "HH:MM"
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmRe.MatchString(fl.Field().String())
	})
	return v
}

// StoreConfig holds the merchant-level settings of a catalog.
type StoreConfig struct {
	StoreName     string `json:"storeName" validate:"required"`
	Phone         string `json:"phone" validate:"omitempty,digitsonly"`
	Currency      string `json:"currency" validate:"required"`
	ThemeColor    string `json:"themeColor" validate:"required"`
	LogoURL       string `json:"logoUrl,omitempty"`
	Instagram     string `json:"instagram,omitempty"`
	Address       string `json:"address,omitempty"`
	OpenTime      string `json:"openTime,omitempty" validate:"omitempty,hhmm"`
	CloseTime     string `json:"closeTime,omitempty" validate:"omitempty,hhmm"`
	AllowPickup   bool   `json:"allowPickup,omitempty"`
	AllowDelivery bool   `json:"allowDelivery,omitempty"`
}

// Validate checks the config invariants: digits-only phone, well-formed
// opening hours with open preceding close (same-day hours only).
func (c *StoreConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if c.OpenTime != "" && c.CloseTime != "" && c.OpenTime >= c.CloseTime {
		return fmt.Errorf("store config: openTime %q must precede closeTime %q", c.OpenTime, c.CloseTime)
	}
	return nil
}

// Product is a single catalog entry. The ID is an opaque stable string,
// minted once at creation and never regenerated on update.
type Product struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Category    string  `json:"category,omitempty"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Available   bool    `json:"available"`
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("product %q: %w", p.ID, err)
	}
	return nil
}

// CategoryOrDefault returns the product category, falling back to
// DefaultCategory when none was set.
func (p *Product) CategoryOrDefault() string {
	if strings.TrimSpace(p.Category) == "" {
		return DefaultCategory
	}
	return p.Category
}

// StoreData is the serialization unit of the whole catalog: merchant config
// plus the product list in display order.
type StoreData struct {
	Config   StoreConfig `json:"config"`
	Products []Product   `json:"products"`
}

// Validate checks the full catalog, including product ID uniqueness.
func (d *StoreData) Validate() error {
	if err := d.Config.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.Products))
	for i := range d.Products {
		p := &d.Products[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product id %q is not unique", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
