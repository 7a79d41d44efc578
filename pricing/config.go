package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SELECTION THRESHOLDS
// =============================================================================

// Thresholds decide which quality/location band a well falls into during
// auto-selection. The precedence itself is fixed in Factory.ForSignals.
type Thresholds struct {
	HighQualityMinGravity  decimal.Decimal `yaml:"high_quality_min_gravity"`
	HighQualityMaxSulfur   decimal.Decimal `yaml:"high_quality_max_sulfur"`
	WellLocatedMaxPenalty  decimal.Decimal `yaml:"well_located_max_penalty"`
	PoorQualityMaxGravity  decimal.Decimal `yaml:"poor_quality_max_gravity"`
	PoorQualityMinSulfur   decimal.Decimal `yaml:"poor_quality_min_sulfur"`
	PoorLocationMinPenalty decimal.Decimal `yaml:"poor_location_min_penalty"`
}

// DefaultThresholds mirrors the premium/discount strategy breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighQualityMinGravity:  decimal.NewFromInt(40),
		HighQualityMaxSulfur:   decimal.RequireFromString("0.5"),
		WellLocatedMaxPenalty:  decimal.NewFromInt(2),
		PoorQualityMaxGravity:  decimal.NewFromInt(30),
		PoorQualityMinSulfur:   decimal.RequireFromString("1.0"),
		PoorLocationMinPenalty: decimal.NewFromInt(5),
	}
}

// =============================================================================
// REGION TABLE
// =============================================================================

// RegionPremium is the posted differential for a producing region.
type RegionPremium struct {
	Oil decimal.Decimal `yaml:"oil"`
	Gas decimal.Decimal `yaml:"gas"`
}

// Config is the optional pricing file (REVENUE_PRICING_CONFIG).
//
//	thresholds:
//	  high_quality_min_gravity: 40
//	regions:
//	  permian: {oil: 1.50, gas: 0.10}
type Config struct {
	Thresholds Thresholds               `yaml:"thresholds"`
	Regions    map[string]RegionPremium `yaml:"regions"`
}

// DefaultConfig has the default thresholds and no regions.
func DefaultConfig() Config {
	return Config{Thresholds: DefaultThresholds(), Regions: map[string]RegionPremium{}}
}

// LoadConfig reads a YAML pricing file. Thresholds missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read pricing config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse pricing config: %w", err)
	}
	regions := make(map[string]RegionPremium, len(cfg.Regions))
	for name, premium := range cfg.Regions {
		regions[normalizeRegion(name)] = premium
	}
	cfg.Regions = regions
	return cfg, nil
}

// ApplyRegion fills blank premiums from the region table. Explicit premiums
// on the request always win.
func (c Config) ApplyRegion(loc LocationData) LocationData {
	premium, ok := c.Regions[normalizeRegion(loc.Region)]
	if !ok {
		return loc
	}
	if loc.RegionPremium.IsZero() {
		loc.RegionPremium = generic.NewMoney(premium.Oil)
	}
	if loc.GasRegionPremium.IsZero() {
		loc.GasRegionPremium = generic.NewMoney(premium.Gas)
	}
	return loc
}

func normalizeRegion(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
