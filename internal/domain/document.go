package domain

// Section is a heading-delimited part of a document. Content before the first
// heading forms a section with an empty title.
type Section struct {
	Title string
	Body  string
}

// Document is a parsed bulk-loader input.
type Document struct {
	Name     string
	Sections []Section
}
