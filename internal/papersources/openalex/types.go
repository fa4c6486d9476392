// Package openalex implements keyword search against the OpenAlex works API.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse is the top-level response from the works endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta carries result counts.
type Meta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
}

// Work is one OpenAlex work. Only the selected fields are decoded.
type Work struct {
	ID              string       `json:"id"`
	DOI             *string      `json:"doi"`
	Title           *string      `json:"title"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`

	// AbstractInvertedIndex maps each word to its positions in the abstract.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Authorship is an author's contribution to a work.
type Authorship struct {
	AuthorPosition string     `json:"author_position"`
	Author         AuthorInfo `json:"author"`
}

// AuthorInfo holds the author display name.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location is where a work is hosted.
type Location struct {
	LandingPageURL *string `json:"landing_page_url"`
	Source         *Source `json:"source"`
}

// Source is a publication venue.
type Source struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
