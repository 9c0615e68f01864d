// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package world

import (
	"fmt"
	"sort"
	"strings"
)

// Attribute projection headers. These strings are part of the embedding
// input, so changing them shifts every stored vector; treat as frozen.
const (
	entityHeader = "Entity attributes"
	edgeHeader   = "Relationship attributes"
)

// DescribeEntity renders an entity's attributes into the deterministic
// descriptive text used as embedding input. Categories are emitted in sorted
// order, one per line, each value followed by its in-story timestamp:
//
//	Entity attributes
//	名字：克莱恩 (穿越后)
//
// This text is the sole semantic signal the index ever sees; search quality
// is entirely determined by its fidelity.
func DescribeEntity(e *Entity) string {
	return describeAttributes(entityHeader, e.Attributes)
}

// DescribeEdge renders a relationship's attributes the same way, under the
// relationship header.
func DescribeEdge(e *Edge) string {
	return describeAttributes(edgeHeader, e.Attributes)
}

func describeAttributes(header string, attrs AttributeMap) string {
	categories := make([]string, 0, len(attrs))
	for category := range attrs {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString(header)
	for _, category := range categories {
		values := attrs[category]
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%s (%s)", v.Value, v.TimestampDesc))
		}
		b.WriteString("\n")
		b.WriteString(category)
		b.WriteString("：")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}
