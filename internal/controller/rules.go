package controller

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/IsacDav66/Criptobot/pkg/config"
)

// Rules are the tunable entry/exit parameters. Defaults come from the
// environment config; an optional rules.yaml overrides them without a
// redeploy.
type Rules struct {
	RSIOversold   float64         // entry pre-filter RSI ceiling
	PriceOffset   decimal.Decimal // limit BUY price = close * PriceOffset
	TakeProfitPct decimal.Decimal
	StopLossPct   decimal.Decimal
}

// rulesFile is the on-disk YAML shape. Pointers distinguish "absent" from
// an explicit zero.
type rulesFile struct {
	Entry struct {
		RSIOversold *float64 `yaml:"rsi_oversold"`
		PriceOffset *float64 `yaml:"price_offset"`
	} `yaml:"entry"`
	Exit struct {
		TakeProfitPercent *float64 `yaml:"take_profit_percent"`
		StopLossPercent   *float64 `yaml:"stop_loss_percent"`
	} `yaml:"exit"`
}

// DefaultRules derives the baseline rule set from the environment config.
func DefaultRules(cfg *config.Config) Rules {
	return Rules{
		RSIOversold:   40,
		PriceOffset:   decimal.RequireFromString("0.999"),
		TakeProfitPct: cfg.TakeProfitPct,
		StopLossPct:   cfg.StopLossPct,
	}
}

// LoadRules reads the YAML override file on top of the defaults. A missing
// file is not an error; a malformed one is.
func LoadRules(path string, cfg *config.Config) (Rules, error) {
	rules := DefaultRules(cfg)
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return rules, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if v := file.Entry.RSIOversold; v != nil {
		rules.RSIOversold = *v
	}
	if v := file.Entry.PriceOffset; v != nil {
		rules.PriceOffset = decimal.NewFromFloat(*v)
	}
	if v := file.Exit.TakeProfitPercent; v != nil {
		rules.TakeProfitPct = decimal.NewFromFloat(*v)
	}
	if v := file.Exit.StopLossPercent; v != nil {
		rules.StopLossPct = decimal.NewFromFloat(*v)
	}
	return rules, nil
}
