package config

import (
	"log"

	"github.com/spf13/viper"
)

// Shop is the identity printed on order sheets.
type Shop struct {
	Name        string `mapstructure:"name"`
	Tagline     string `mapstructure:"tagline"`
	Contact     string `mapstructure:"contact"`
	DefaultUnit string `mapstructure:"default_unit"`
}

// DefaultShop is used when no shop file is present.
func DefaultShop() Shop {
	return Shop{Name: "Bar", Tagline: "Gestion de stock", Contact: "—", DefaultUnit: "Bouteille"}
}

// LoadShop reads the [shop] table of a TOML file. Missing keys keep their defaults.
func LoadShop(path string) Shop {
	shop := DefaultShop()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("shop.name", shop.Name)
	v.SetDefault("shop.tagline", shop.Tagline)
	v.SetDefault("shop.contact", shop.Contact)
	v.SetDefault("shop.default_unit", shop.DefaultUnit)
	if err := v.ReadInConfig(); err != nil {
		log.Printf("shop config %s not loaded, using defaults: %v", path, err)
		return shop
	}
	if err := v.UnmarshalKey("shop", &shop); err != nil {
		log.Printf("shop config %s invalid, using defaults: %v", path, err)
		return DefaultShop()
	}
	return shop
}
