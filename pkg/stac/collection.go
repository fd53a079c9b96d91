package stac

// Collection is a named grouping of Items sharing common metadata
type Collection struct {
	Type        string                 `json:"type,omitempty"`
	ID          string                 `json:"id"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	License     string                 `json:"license,omitempty"`
	StacVersion string                 `json:"stac_version,omitempty"`
	Extent      *Extent                `json:"extent,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Links       []Link                 `json:"links,omitempty"`
}

// Extent describes the spatial and temporal coverage of a Collection
type Extent struct {
	Spatial  *SpatialExtent  `json:"spatial,omitempty"`
	Temporal *TemporalExtent `json:"temporal,omitempty"`
}

// SpatialExtent holds one or more bounding boxes
type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox,omitempty"`
}

// TemporalExtent holds one or more [start, end] intervals; either bound may
// be null for an open interval
type TemporalExtent struct {
	Interval [][]*string `json:"interval,omitempty"`
}
