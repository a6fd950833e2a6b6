package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicyFile overlays the billing policy in path on base. Keys absent from
// the file keep their base value; unknown keys are rejected.
//
//	gap_policy: skip
//	due_anchor: period_start
//	due_offset_days: 10
//	lookahead_days: 7
//	currency: USD
func LoadPolicyFile(path string, base BillingConfig) (BillingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BillingConfig{}, fmt.Errorf("reading billing policy: %w", err)
	}

	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return BillingConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return BillingConfig{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}
