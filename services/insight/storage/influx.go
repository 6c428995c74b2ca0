// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/AleutianInsight/pkg/validation"
	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// conversionMeasurement is the InfluxDB measurement conversion records are
// ingested into (by the ingestion pipeline, outside this core).
const conversionMeasurement = "conversion_rates"

// InfluxConfig holds connection settings for the conversion-record store.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxConfigFromEnv reads connection settings from the environment,
// falling back to local development defaults.
func InfluxConfigFromEnv() InfluxConfig {
	cfg := InfluxConfig{
		URL:    os.Getenv("INFLUXDB_URL"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8086"
	}
	if cfg.Org == "" {
		cfg.Org = "aleutian-insight"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "behavioral-data"
	}
	return cfg
}

// Validate checks if the configuration is valid.
func (c *InfluxConfig) Validate() error {
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx config incomplete: url=%q org=%q bucket=%q", c.URL, c.Org, c.Bucket)
	}
	return nil
}

// Influx is a ConversionStore over an InfluxDB time-series bucket.
//
// Description:
//
//	Conversion records are rows of the conversion_rates measurement with
//	tenant and segment dimensions as tags and conversion_rate/sample_size
//	as fields. Every identifier is validated through pkg/validation before
//	interpolation into a Flux query; the core never builds a query from an
//	unvalidated string.
//
// Thread Safety: Safe for concurrent use.
type Influx struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	bucket   string
	logger   *slog.Logger
}

var _ ConversionStore = (*Influx)(nil)

// NewInflux creates the store and its underlying client.
// Caller must call Close() when done.
func NewInflux(cfg InfluxConfig, logger *slog.Logger) (*Influx, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		logger:   logger.With(slog.String("component", "influx_store")),
	}, nil
}

// Close releases the underlying client.
func (s *Influx) Close() {
	s.client.Close()
}

// segmentFilters renders Flux tag filters for the present descriptor
// dimensions. All values have passed ValidateLabels.
func segmentFilters(seg segment.Descriptor) string {
	var b strings.Builder
	add := func(tag, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  |> filter(fn: (r) => r.%s == %q)\n", tag, value)
		}
	}
	add("page_type", seg.PageType)
	add("traffic_source", seg.TrafficSource)
	add("device_type", seg.DeviceType)
	add("category", seg.Category)
	return b.String()
}

// QueryConversionRecords implements ConversionStore.
func (s *Influx) QueryConversionRecords(ctx context.Context, seg segment.Descriptor, start, end time.Time) ([]datatypes.ConversionRecord, error) {
	// Validate every dimension before Flux interpolation.
	if err := validation.ValidateLabels(seg.PageType, seg.TrafficSource, seg.DeviceType, seg.Category); err != nil {
		return nil, fmt.Errorf("invalid segment: %w", err)
	}

	query := fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == %q)
		%s  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, s.bucket, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), conversionMeasurement, segmentFilters(seg))

	return s.runConversionQuery(ctx, query)
}

// QueryTenantConversionRecords implements ConversionStore.
func (s *Influx) QueryTenantConversionRecords(ctx context.Context, tenantID string, start, end time.Time) ([]datatypes.ConversionRecord, error) {
	// Validate tenant ID to prevent Flux injection.
	if err := validation.ValidateTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}

	query := fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.tenant_id == %q)
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, s.bucket, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), conversionMeasurement, tenantID)

	return s.runConversionQuery(ctx, query)
}

// runConversionQuery executes a Flux query and decodes pivoted rows into
// conversion records.
func (s *Influx) runConversionQuery(ctx context.Context, query string) ([]datatypes.ConversionRecord, error) {
	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("influx query failed: %w", err)
	}

	var out []datatypes.ConversionRecord
	for result.Next() {
		record := result.Record()

		rec := datatypes.ConversionRecord{Timestamp: record.Time()}
		if v, ok := record.ValueByKey("tenant_id").(string); ok {
			rec.TenantID = v
		}
		if v, ok := record.ValueByKey("conversion_rate").(float64); ok {
			rec.ConversionRate = v
		}
		switch v := record.ValueByKey("sample_size").(type) {
		case int64:
			rec.SampleSize = int(v)
		case float64:
			rec.SampleSize = int(v)
		}
		if v, ok := record.ValueByKey("page_type").(string); ok {
			rec.Segment.PageType = v
		}
		if v, ok := record.ValueByKey("traffic_source").(string); ok {
			rec.Segment.TrafficSource = v
		}
		if v, ok := record.ValueByKey("device_type").(string); ok {
			rec.Segment.DeviceType = v
		}
		if v, ok := record.ValueByKey("category").(string); ok {
			rec.Segment.Category = v
		}

		// Records without a sample are malformed upstream; drop rather
		// than poison the weighted mean.
		if rec.TenantID == "" || rec.SampleSize < 1 {
			continue
		}
		out = append(out, rec)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error reading influx results: %w", result.Err())
	}

	s.logger.Debug("fetched conversion records", slog.Int("count", len(out)))
	return out, nil
}
