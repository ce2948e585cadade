package pipelineconfig

import (
	"fmt"
	"regexp"
	"sort"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Windows ===
	if cfg.LookbackMonths < 1 {
		return ValidationError{"lookback_months", "must be >= 1"}
	}
	for _, h := range cfg.Horizons {
		if h < 1 || h > cfg.LookbackMonths {
			return ValidationError{"horizons", fmt.Sprintf("horizon %d outside 1..%d", h, cfg.LookbackMonths)}
		}
	}
	if !sort.IntsAreSorted(cfg.Horizons) {
		return ValidationError{"horizons", "must be ascending"}
	}

	// === Mapping ===
	if cfg.Mapping.EkpnrMin > cfg.Mapping.EkpnrMax {
		return ValidationError{"mapping", "ekpnr_min must be <= ekpnr_max"}
	}

	// === Weight brackets ===
	if len(cfg.WeightBrackets) == 0 {
		return ValidationError{"weight_brackets", "required"}
	}
	seen := make(map[string]bool)
	for i, b := range cfg.WeightBrackets {
		field := fmt.Sprintf("weight_brackets[%d]", i)
		if b.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if seen[b.Name] {
			return ValidationError{field + ".name", "duplicate " + b.Name}
		}
		seen[b.Name] = true
		if b.Upper != 0 && b.Upper <= b.Lower {
			return ValidationError{field, "upper must be > lower"}
		}
		if i > 0 && b.Lower != cfg.WeightBrackets[i-1].Upper {
			return ValidationError{field, "brackets must be contiguous"}
		}
	}

	// === Products ===
	if len(cfg.Products) == 0 {
		return ValidationError{"products", "required"}
	}
	for name, p := range cfg.Products {
		field := "products." + name
		if len(p.Verfa) != 2 {
			return ValidationError{field + ".verfa", "must be 2 characters"}
		}
		if len(p.PriceLists) == 0 {
			return ValidationError{field + ".price_lists", "required"}
		}
		if p.PLPattern != "" {
			if _, err := regexp.Compile(p.PLPattern); err != nil {
				return ValidationError{field + ".pl_pattern", err.Error()}
			}
		}
		if len(p.KprProductIDs) == 0 {
			return ValidationError{field + ".kpr_product_ids", "required"}
		}
	}

	return nil
}
