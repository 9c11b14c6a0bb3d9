// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules embeds the default classification rule sets so the filter
// works with zero external files. Operators can override the rules at
// startup by pointing the filter at an external YAML file of the same shape.
package rules

import _ "embed"

// ClassificationPatterns is the embedded default rule file consumed by the
// filter's pattern library.
//
//go:embed classification_patterns.yaml
var ClassificationPatterns []byte
