// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package predict builds feature vectors from tenant profiles and produces
// revenue, traffic, and success predictions through pluggable backends.
package predict

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var vocabYAML []byte

// Vocab holds the fixed, versioned categorical vocabularies for feature
// encoding.
//
// Description:
//
//	Vocabularies are loaded once at startup from an embedded file and
//	never grow at runtime. Two instances with the same version encode any
//	profile identically, so stored predictions are reproducible across
//	processes and restarts. Index 0 of each list is the out-of-vocabulary
//	bucket.
type Vocab struct {
	Version         string   `yaml:"version"`
	Category        []string `yaml:"category"`
	Audience        []string `yaml:"audience"`
	Geography       []string `yaml:"geography"`
	ContentStrategy []string `yaml:"content_strategy"`
}

// LoadVocab parses the embedded vocabulary file.
func LoadVocab() (*Vocab, error) {
	var v Vocab
	if err := yaml.Unmarshal(vocabYAML, &v); err != nil {
		return nil, fmt.Errorf("parse embedded vocab: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("invalid embedded vocab: %w", err)
	}
	return &v, nil
}

func (v *Vocab) validate() error {
	if v.Version == "" {
		return errors.New("missing version")
	}
	for name, list := range map[string][]string{
		"category":         v.Category,
		"audience":         v.Audience,
		"geography":        v.Geography,
		"content_strategy": v.ContentStrategy,
	} {
		// Two entries minimum: the OOV bucket plus at least one real value.
		if len(list) < 2 {
			return fmt.Errorf("vocabulary %q needs at least 2 entries, got %d", name, len(list))
		}
	}
	return nil
}

// encode maps a raw value to its normalized vocabulary position in [0, 1].
// Unknown values land in the out-of-vocabulary bucket at index 0.
func encode(list []string, raw string) float64 {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for i, entry := range list {
		if i == 0 {
			continue // OOV bucket is never matched directly
		}
		if entry == needle {
			return float64(i) / float64(len(list)-1)
		}
	}
	return 0
}

// EncodeCategory maps a category through the fixed vocabulary.
func (v *Vocab) EncodeCategory(raw string) float64 { return encode(v.Category, raw) }

// EncodeAudience maps a target audience through the fixed vocabulary.
func (v *Vocab) EncodeAudience(raw string) float64 { return encode(v.Audience, raw) }

// EncodeGeography maps a geographic focus through the fixed vocabulary.
func (v *Vocab) EncodeGeography(raw string) float64 { return encode(v.Geography, raw) }

// EncodeContentStrategy maps a content strategy through the fixed vocabulary.
func (v *Vocab) EncodeContentStrategy(raw string) float64 {
	return encode(v.ContentStrategy, raw)
}
