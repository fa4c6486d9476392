// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// It serves two roles: keyword search as a papersources.PaperSource, and the
// citation-graph operations (resolve a paper, list citing and cited papers)
// used by the citation explorer.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	Total int           `json:"total"`
	Data  []PaperResult `json:"data"`
}

// PaperResult represents a single paper in an API response.
// Every field may be absent upstream.
type PaperResult struct {
	PaperID         string       `json:"paperId"`
	Title           string       `json:"title"`
	Abstract        *string      `json:"abstract"`
	Year            int          `json:"year"`
	PublicationDate string       `json:"publicationDate"`
	Venue           string       `json:"venue"`
	URL             string       `json:"url"`
	Authors         []Author     `json:"authors"`
	ExternalIDs     *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI   string `json:"DOI,omitempty"`
	ArXiv string `json:"ArXiv,omitempty"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// citationsResponse is returned by /paper/{id}/citations.
type citationsResponse struct {
	Data []struct {
		CitingPaper PaperResult `json:"citingPaper"`
	} `json:"data"`
}

// referencesResponse is returned by /paper/{id}/references.
type referencesResponse struct {
	Data []struct {
		CitedPaper PaperResult `json:"citedPaper"`
	} `json:"data"`
}
