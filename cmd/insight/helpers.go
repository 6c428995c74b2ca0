// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// apiError mirrors the gateway's uniform error body.
type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// callGateway performs one request against the insightd gateway and
// decodes the JSON response into out. Non-2xx responses are fatal with
// the gateway's error message.
func callGateway(method, path string, query url.Values, body any, out any) {
	endpoint := strings.TrimRight(serverURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Fatalf("Failed to reach the insight gateway at %s: %v", serverURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			log.Fatalf("The gateway refused the request (%s): %s", apiErr.Kind, apiErr.Error)
		}
		log.Fatalf("The gateway returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("Failed to parse gateway response: %v", err)
		}
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to format output: %v", err)
	}
	fmt.Println(string(formatted))
}
