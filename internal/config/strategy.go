package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Strategy describes a crossover setup: one primary MA that must cross
// every reference MA.
type Strategy struct {
	Name        string   `yaml:"name" json:"name"`
	Primary     string   `yaml:"primary" json:"primary"`
	References  []string `yaml:"references" json:"references"`
	Description string   `yaml:"description" json:"description"`
}

// StrategyInfo is a Strategy with its periods resolved against the catalog.
type StrategyInfo struct {
	Name             string   `json:"name"`
	Primary          string   `json:"primary"`
	References       []string `json:"references"`
	Description      string   `json:"description"`
	PrimaryPeriod    int      `json:"primary_period"`
	ReferencePeriods []int    `json:"reference_periods"`
}

// Summary is a compact view of the running configuration.
type Summary struct {
	Symbols      int            `json:"symbols"`
	Timeframe    string         `json:"timeframe"`
	Interval     string         `json:"interval"`
	MinStrength  string         `json:"min_strength"`
	Strategy     string         `json:"strategy"`
	Primary      string         `json:"primary"`
	References   []string       `json:"references"`
	MovingAvgs   map[string]int `json:"moving_averages"`
	AvailableMAs int            `json:"available_mas"`
}

var (
	// ErrUnknownMA is returned when a strategy names an MA missing from the catalog.
	ErrUnknownMA = errors.New("moving average not found in available_mas")
	// ErrNoReferences is returned when a strategy has no reference MAs.
	ErrNoReferences = errors.New("at least one reference MA is required")
	// ErrSamePeriod is returned when a reference shares the primary's period.
	ErrSamePeriod = errors.New("primary and reference MA have the same period")
)

// NewStrategy builds a strategy. An empty description is derived from the MAs.
func NewStrategy(name, primary string, references []string, description string) Strategy {
	if description == "" {
		description = fmt.Sprintf("%s crossing %s", primary, strings.Join(references, ", "))
	}
	return Strategy{
		Name:        name,
		Primary:     primary,
		References:  append([]string(nil), references...),
		Description: description,
	}
}

// ExampleStrategies lists ready-made strategies that can be copied into the config.
func ExampleStrategies() []Strategy {
	return []Strategy{
		NewStrategy("CLASSICA_20_50", "MA_20", []string{"MA_50"}, "Classic crossover"),
		NewStrategy("GOLDEN_CROSS", "MA_50", []string{"MA_200"}, "Golden Cross"),
		NewStrategy("RAPIDA_TRIPLA", "MA_9", []string{"MA_25", "MA_99"}, "MA9 vs MA25 and MA99"),
		NewStrategy("SCALPING", "MA_5", []string{"MA_20"}, "Scalping MA5 vs MA20"),
		NewStrategy("SWING_TRADE", "MA_20", []string{"MA_50", "MA_200"}, "Swing trade across multiple MAs"),
	}
}

// AddMA adds (or replaces) a moving average in the catalog.
func (c *Config) AddMA(name string, period int) {
	if c.AvailableMAs == nil {
		c.AvailableMAs = make(map[string]int)
	}
	c.AvailableMAs[name] = period
}

// RequiredMAs returns the MAs the current strategy needs. Names missing
// from the catalog are skipped.
func (c *Config) RequiredMAs() map[string]int {
	required := make(map[string]int)
	if p, ok := c.AvailableMAs[c.Strategy.Primary]; ok {
		required[c.Strategy.Primary] = p
	}
	for _, ref := range c.Strategy.References {
		if p, ok := c.AvailableMAs[ref]; ok {
			required[ref] = p
		}
	}
	return required
}

// MANames returns the required MA names ordered by period.
func (c *Config) MANames() []string {
	return SortedByPeriod(c.RequiredMAs())
}

// MAPeriods returns the required MA periods in ascending order.
func (c *Config) MAPeriods() []int {
	required := c.RequiredMAs()
	names := SortedByPeriod(required)
	periods := make([]int, len(names))
	for i, name := range names {
		periods[i] = required[name]
	}
	return periods
}

// MaxPeriod returns the longest period the strategy needs.
func (c *Config) MaxPeriod() int {
	max := 0
	for _, p := range c.RequiredMAs() {
		if p > max {
			max = p
		}
	}
	return max
}

// SortedByPeriod returns the map's names ordered by period, then name.
func SortedByPeriod(mas map[string]int) []string {
	names := make([]string, 0, len(mas))
	for name := range mas {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if mas[names[i]] != mas[names[j]] {
			return mas[names[i]] < mas[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// StrategyInfo resolves the current strategy against the catalog.
// Unknown MAs report period 0.
func (c *Config) StrategyInfo() StrategyInfo {
	refs := append([]string(nil), c.Strategy.References...)
	periods := make([]int, len(refs))
	for i, ref := range refs {
		periods[i] = c.AvailableMAs[ref]
	}
	return StrategyInfo{
		Name:             c.Strategy.Name,
		Primary:          c.Strategy.Primary,
		References:       refs,
		Description:      c.Strategy.Description,
		PrimaryPeriod:    c.AvailableMAs[c.Strategy.Primary],
		ReferencePeriods: periods,
	}
}

// Summary returns a compact view of the configuration.
func (c *Config) Summary() Summary {
	info := c.StrategyInfo()
	refs := make([]string, len(info.References))
	for i, ref := range info.References {
		refs[i] = fmt.Sprintf("%s(%d)", ref, info.ReferencePeriods[i])
	}
	return Summary{
		Symbols:      len(c.Symbols),
		Timeframe:    c.Timeframe,
		Interval:     c.GetInterval().String(),
		MinStrength:  fmt.Sprintf("%.1f%%", c.MinStrength*100),
		Strategy:     info.Description,
		Primary:      fmt.Sprintf("%s(%d)", info.Primary, info.PrimaryPeriod),
		References:   refs,
		MovingAvgs:   c.RequiredMAs(),
		AvailableMAs: len(c.AvailableMAs),
	}
}

// ValidateStrategy checks the strategy against the MA catalog.
func (c *Config) ValidateStrategy() error {
	s := c.Strategy

	primaryPeriod, ok := c.AvailableMAs[s.Primary]
	if !ok {
		return fmt.Errorf("primary %q: %w", s.Primary, ErrUnknownMA)
	}

	for _, ref := range s.References {
		if _, ok := c.AvailableMAs[ref]; !ok {
			return fmt.Errorf("reference %q: %w", ref, ErrUnknownMA)
		}
	}

	if len(s.References) == 0 {
		return ErrNoReferences
	}

	for _, ref := range s.References {
		if c.AvailableMAs[ref] == primaryPeriod {
			return fmt.Errorf("reference %q (%d): %w", ref, primaryPeriod, ErrSamePeriod)
		}
	}

	return nil
}
