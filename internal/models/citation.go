package models

// Citation is a literature reference used to ground newsletter content.
type Citation struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Year   string `json:"year"`
	URL    string `json:"url"`
}
