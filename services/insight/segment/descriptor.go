// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package segment defines the segment descriptor used to group conversion
// records for cross-tenant benchmarking.
//
// A Descriptor is a fixed set of optional dimensions. It replaces free-form
// key-value metadata maps: every dimension the aggregation pipeline can
// group by is an explicit, typed field, and the storage key for a segment
// is produced by one canonicalization function so that two descriptors with
// the same present fields always map to the same benchmark history.
package segment

import (
	"fmt"
	"sort"
	"strings"
)

// KeyAll is the canonical key for the empty descriptor (no dimensions set).
const KeyAll = "all"

// fieldSep separates field=value pairs in a canonical key.
const fieldSep = "|"

// Descriptor identifies a cross-tenant segment.
//
// All fields are optional. An empty field means "not constrained on this
// dimension"; it is omitted from the canonical key rather than encoded as
// an empty value.
type Descriptor struct {
	// PageType is the page class the conversion happened on
	// (e.g. "landing", "product", "checkout").
	PageType string `json:"page_type,omitempty" yaml:"page_type,omitempty"`

	// TrafficSource is the acquisition channel (e.g. "organic", "paid", "social").
	TrafficSource string `json:"traffic_source,omitempty" yaml:"traffic_source,omitempty"`

	// DeviceType is the visitor device class (e.g. "mobile", "desktop").
	DeviceType string `json:"device_type,omitempty" yaml:"device_type,omitempty"`

	// Category is the tenant business category (e.g. "fashion", "electronics").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// IsZero reports whether no dimension is set.
func (d Descriptor) IsZero() bool {
	return d.PageType == "" && d.TrafficSource == "" && d.DeviceType == "" && d.Category == ""
}

// fields returns the present dimensions as name/value pairs.
func (d Descriptor) fields() map[string]string {
	m := make(map[string]string, 4)
	if d.PageType != "" {
		m["page_type"] = d.PageType
	}
	if d.TrafficSource != "" {
		m["traffic_source"] = d.TrafficSource
	}
	if d.DeviceType != "" {
		m["device_type"] = d.DeviceType
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	return m
}

// Key returns the canonical storage key for the descriptor.
//
// Description:
//
//	Present fields are rendered as "name=value" pairs, sorted by field
//	name, and joined with "|". Field order in the struct literal never
//	affects the key. The empty descriptor canonicalizes to KeyAll.
//
// Example:
//
//	segment.Descriptor{DeviceType: "mobile", PageType: "landing"}.Key()
//	// "device_type=mobile|page_type=landing"
func (d Descriptor) Key() string {
	fields := d.fields()
	if len(fields) == 0 {
		return KeyAll
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+fields[name])
	}
	return strings.Join(pairs, fieldSep)
}

// String implements fmt.Stringer using the canonical key.
func (d Descriptor) String() string { return d.Key() }

// ParseKey reconstructs a Descriptor from a canonical key.
//
// Accepts keys produced by Key, including KeyAll. Unknown field names are
// rejected so that stored benchmark histories cannot silently diverge from
// the descriptor schema.
func ParseKey(key string) (Descriptor, error) {
	var d Descriptor
	if key == "" || key == KeyAll {
		return d, nil
	}
	for _, pair := range strings.Split(key, fieldSep) {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			return Descriptor{}, fmt.Errorf("malformed segment key element %q", pair)
		}
		switch name {
		case "page_type":
			d.PageType = value
		case "traffic_source":
			d.TrafficSource = value
		case "device_type":
			d.DeviceType = value
		case "category":
			d.Category = value
		default:
			return Descriptor{}, fmt.Errorf("unknown segment field %q", name)
		}
	}
	return d, nil
}
