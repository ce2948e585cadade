package pipelineconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML rule set and validates it
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = []int{1, 3, 6, 9, 12}
	}
	if cfg.LookbackMonths == 0 {
		cfg.LookbackMonths = 12
	}
	if cfg.Mapping.EkpnrMin == 0 && cfg.Mapping.EkpnrMax == 0 {
		cfg.Mapping.EkpnrMin = 5000000000
		cfg.Mapping.EkpnrMax = 7000000000
	}
}

// Product returns the rules of a product line (case-insensitive)
func (c *Config) Product(name string) (ProductRules, error) {
	rules, ok := c.Products[strings.ToLower(name)]
	if !ok {
		return ProductRules{}, fmt.Errorf("no rules for product %q", name)
	}
	return rules, nil
}

// BracketNames lists the weight bracket columns in order
func (c *Config) BracketNames() []string {
	names := make([]string, len(c.WeightBrackets))
	for i, b := range c.WeightBrackets {
		names[i] = b.Name
	}
	return names
}

// RunTable qualifies a per-run warehouse table
func (c *Config) RunTable(runName, table string) string {
	return fmt.Sprintf("%s.%s_%s", c.Warehouse.Schema, runName, table)
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map은 json.Marshal에서 키 정렬되므로 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
