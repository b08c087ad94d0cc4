package models

// FAQ is a single entry from the public FAQ listing.
type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
