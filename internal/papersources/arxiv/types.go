package arxiv

import "encoding/xml"

// Feed represents the Atom XML response from the arXiv API.
type Feed struct {
	XMLName      xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	TotalResults int      `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []Entry  `xml:"http://www.w3.org/2005/Atom entry"`
}

// Entry represents a single arXiv paper in the Atom feed.
type Entry struct {
	ID         string   `xml:"http://www.w3.org/2005/Atom id"` // "http://arxiv.org/abs/2301.12345v1"
	Title      string   `xml:"http://www.w3.org/2005/Atom title"`
	Summary    string   `xml:"http://www.w3.org/2005/Atom summary"`   // abstract
	Published  string   `xml:"http://www.w3.org/2005/Atom published"` // "2023-01-15T18:30:00Z"
	Authors    []Author `xml:"http://www.w3.org/2005/Atom author"`
	Links      []Link   `xml:"http://www.w3.org/2005/Atom link"`
	DOI        string   `xml:"http://arxiv.org/schemas/atom doi"`
	JournalRef string   `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

// Author represents a paper author in the arXiv Atom feed.
type Author struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

// Link represents a link element in the Atom feed.
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}
