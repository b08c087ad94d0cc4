package models

// DocumentType identifies one of the downloadable PDF documents offered
// on the profile screen.
type DocumentType string

const (
	DocumentOne   DocumentType = "documento_1"
	DocumentTwo   DocumentType = "documento_2"
	DocumentThree DocumentType = "documento_3"
)

// documentInfo maps each document type to its backend id and the
// filename used when saving the download locally.
var documentInfo = map[DocumentType]struct {
	ID       string
	Filename string
}{
	DocumentOne:   {ID: "doc1", Filename: "Documento_1.pdf"},
	DocumentTwo:   {ID: "doc2", Filename: "Documento_2.pdf"},
	DocumentThree: {ID: "doc3", Filename: "Documento_3.pdf"},
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	_, ok := documentInfo[t]
	return ok
}

// BackendID returns the id used in the download path.
func (t DocumentType) BackendID() string {
	return documentInfo[t].ID
}

// Filename returns the local filename for the downloaded PDF.
func (t DocumentType) Filename() string {
	return documentInfo[t].Filename
}

// DocumentTypes lists all downloadable documents in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{DocumentOne, DocumentTwo, DocumentThree}
}
