// Package intake collects the PDF reference documents a refinement is grounded on.
package intake

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
)

// PDFMediaType is the only media type the intake accepts.
const PDFMediaType = "application/pdf"

var ErrIndexOutOfRange = errors.New("document index out of range")

// Document is an accepted upload. Two documents with the same name are
// distinct entries; identity is the position in the List.
type Document struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Pages     int    `json:"pages,omitempty"`

	path string
}

// Open returns the document's bytes.
func (d Document) Open() (io.ReadCloser, error) {
	if d.path == "" {
		return nil, fmt.Errorf("document %q has no backing file", d.Name)
	}
	return os.Open(d.path)
}

// Path is where the document bytes live on disk.
func (d Document) Path() string { return d.path }

// Rejection describes an upload the type filter refused.
type Rejection struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Reason    string `json:"reason"`
}

// IsPDF reports whether a declared media type is PDF. Parameters and case are ignored.
func IsPDF(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])
	}
	return strings.EqualFold(mt, PDFMediaType)
}

// List is the ordered document list of one session. It is not safe for
// concurrent use; the owning session serialises access.
type List struct {
	docs []Document
}

// Add appends the PDF documents in order and reports the rest as rejected.
// Existing entries are kept. Accepted entries carry exactly PDFMediaType.
func (l *List) Add(docs ...Document) (accepted []Document, rejected []Rejection) {
	for _, d := range docs {
		if !IsPDF(d.MediaType) {
			rejected = append(rejected, Rejection{
				Name:      d.Name,
				MediaType: d.MediaType,
				Reason:    "only PDF files are accepted",
			})
			continue
		}
		d.MediaType = PDFMediaType
		l.docs = append(l.docs, d)
		accepted = append(accepted, d)
	}
	return accepted, rejected
}

// Remove deletes the entry at position i, keeping the others in order.
func (l *List) Remove(i int) (Document, error) {
	if i < 0 || i >= len(l.docs) {
		return Document{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(l.docs))
	}
	d := l.docs[i]
	l.docs = append(l.docs[:i:i], l.docs[i+1:]...)
	return d, nil
}

// Documents returns a copy of the current list.
func (l *List) Documents() []Document {
	out := make([]Document, len(l.docs))
	copy(out, l.docs)
	return out
}

func (l *List) Len() int { return len(l.docs) }

// Clear empties the list and returns what was in it.
func (l *List) Clear() []Document {
	old := l.docs
	l.docs = nil
	return old
}
