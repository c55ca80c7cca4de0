// Package europepmc provides a client for the Europe PMC REST API.
//
// Europe PMC is a literature aggregator maintained by EMBL-EBI. Unlike
// PubMed's two-step flow, a single search request returns full result
// records, with the publication-date window embedded in the query
// expression as an explicit ISO date range.
//
// API documentation: https://europepmc.org/RestfulWebService
package europepmc

// searchResponse represents the JSON response from the search endpoint.
type searchResponse struct {
	HitCount   int        `json:"hitCount"`
	ResultList resultList `json:"resultList"`
}

// resultList wraps the list of result records.
type resultList struct {
	Result []result `json:"result"`
}

// result represents a single literature record.
type result struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	AbstractText string `json:"abstractText"`
	DOI          string `json:"doi"`
	JournalTitle string `json:"journalTitle"`
}
