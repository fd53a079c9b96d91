package stac

import (
	"encoding/json"
	"net/url"
	"path"
)

// Item represents a single catalog record (a GeoJSON feature) describing one
// scene and its downloadable assets.
type Item struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Collection string                 `json:"collection,omitempty"`
	Geometry   json.RawMessage        `json:"geometry,omitempty"`
	Bbox       []float64              `json:"bbox,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Assets     map[string]Asset       `json:"assets,omitempty"`
	Links      []Link                 `json:"links,omitempty"`
}

// Asset is a downloadable file referenced by an Item
type Asset struct {
	Href  string   `json:"href"`
	Title string   `json:"title,omitempty"`
	Type  string   `json:"type,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Link relates an Item or Collection to other resources
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Property returns a property value by key
func (i *Item) Property(key string) (interface{}, bool) {
	if i.Properties == nil {
		return nil, false
	}
	v, ok := i.Properties[key]
	return v, ok
}

// StringProperty returns a property value as a string, or "" if absent or
// not a string
func (i *Item) StringProperty(key string) string {
	v, ok := i.Property(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Datetime returns the item's observation timestamp property
func (i *Item) Datetime() string {
	return i.StringProperty("datetime")
}

// Asset returns the asset stored under the given key
func (i *Item) Asset(key string) (Asset, bool) {
	a, ok := i.Assets[key]
	return a, ok
}

// AssetExt returns the file extension of an asset href, ignoring any query
// string. Returns "" when the href has no extension.
func AssetExt(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return path.Ext(href)
	}
	return path.Ext(u.Path)
}
