// Package nominatim provides a client for the Nominatim geocoding API.
package nominatim

// Status is a snapshot of Nominatim server health as reported by the
// status endpoint.
type Status struct {
	Status          int    `json:"status"`
	Message         string `json:"message"`
	DataUpdated     string `json:"data_updated,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	DatabaseVersion string `json:"database_version,omitempty"`
}

// Place is a single geocoding result. The remote schema is loosely
// populated per place type, so every field decodes to its zero value when
// absent rather than failing.
type Place struct {
	PlaceID     int64    `json:"place_id"`
	Licence     string   `json:"licence"`
	OSMType     string   `json:"osm_type"`
	OSMID       int64    `json:"osm_id"`
	// BoundingBox holds the south, north, west and east bounds as
	// decimal strings, in that order.
	BoundingBox []string `json:"boundingbox"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	Class       string   `json:"class,omitempty"`
	Type        string   `json:"type,omitempty"`
	Importance  float64  `json:"importance,omitempty"`
	Icon        string   `json:"icon,omitempty"`

	Address   *Address   `json:"address,omitempty"`
	ExtraTags *ExtraTags `json:"extratags,omitempty"`
}

// Address is the structured address fragment of a Place. Presence of each
// field varies by place type and locale.
type Address struct {
	City          string `json:"city,omitempty"`
	StateDistrict string `json:"state_district,omitempty"`
	State         string `json:"state,omitempty"`
	ISO3166Lvl4   string `json:"ISO3166-2-lvl4,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// ExtraTags carries auxiliary OSM metadata for a Place. Only populated when
// the server has the data and the request asked for extra tags.
type ExtraTags struct {
	Capital    string `json:"capital,omitempty"`
	Website    string `json:"website,omitempty"`
	Wikidata   string `json:"wikidata,omitempty"`
	Wikipedia  string `json:"wikipedia,omitempty"`
	Population string `json:"population,omitempty"`
}
