// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the opera research
// pipeline: project items, search queries, discovered sources, extracted
// findings, review queue entries, and research cycle records.
package types

import "time"

// ItemType categorizes a project item.
type ItemType string

const (
	ItemEntity       ItemType = "entity"
	ItemOrganization ItemType = "organization"
	ItemLocation     ItemType = "location"
	ItemKeyword      ItemType = "keyword"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// ProjectItem is a named thing of interest inside a project. Names are
// stored lowercased and act as the natural dedup key within a project.
// Items are append-only for the lifetime of a project: they are created by
// explicit add commands or by review approval, and never deleted.
type ProjectItem struct {
	// ID is an opaque unique identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the lowercased display name.
	Name string `json:"name" yaml:"name"`

	// Type is one of entity, organization, location, keyword.
	Type ItemType `json:"type" yaml:"type"`

	// Description is optional free text.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Coords is set for location items only.
	Coords *LatLng `json:"coords,omitempty" yaml:"coords,omitempty"`

	// Data holds free-form provenance fields (address, source URL, ...).
	Data map[string]string `json:"data,omitempty" yaml:"data,omitempty"`

	// AddedBy identifies the user or worker that created the item.
	AddedBy string `json:"added_by,omitempty" yaml:"added_by,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Project is a named research workspace owning a set of items.
type Project struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedBy string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// SearchQuery is one generated query for a research cycle. Queries are
// ephemeral: generated per cycle and not persisted beyond logging. Items
// references the exact project items whose names compose Query.
type SearchQuery struct {
	Query string `json:"query"`

	Items []ProjectItem `json:"items"`

	// Priority ranks the query; lower values are searched first.
	Priority int `json:"priority"`
}
