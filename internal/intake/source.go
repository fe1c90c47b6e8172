package intake

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FromMultipart spools one uploaded file into dir and describes it with the
// media type the client declared for the part. Non-PDF parts are described
// but not spooled; List.Add rejects them.
func FromMultipart(dir string, fh *multipart.FileHeader) (Document, error) {
	doc := Document{
		Name:      filepath.Base(fh.Filename),
		MediaType: fh.Header.Get("Content-Type"),
		Size:      fh.Size,
	}
	if !IsPDF(doc.MediaType) {
		return doc, nil
	}

	src, err := fh.Open()
	if err != nil {
		return doc, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return doc, fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+".pdf")
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return doc, fmt.Errorf("spool upload %q: %w", fh.Filename, err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return doc, fmt.Errorf("spool upload %q: %w", fh.Filename, err)
	}

	doc.Size = n
	doc.path = dst
	doc.Pages = pageCount(dst)
	return doc, nil
}

// FromPath describes a file on disk, declaring its media type from the
// extension the way a browser would.
func FromPath(path string) (Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Document{}, err
	}
	if st.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	doc := Document{
		Name:      filepath.Base(path),
		MediaType: mime.TypeByExtension(filepath.Ext(path)),
		Size:      st.Size(),
		path:      path,
	}
	if doc.MediaType == "" {
		doc.MediaType = "application/octet-stream"
	}
	if IsPDF(doc.MediaType) {
		doc.Pages = pageCount(path)
	}
	return doc, nil
}

// Discard removes spooled files under dir. Files outside dir (CLI paths)
// are left alone.
func Discard(dir string, docs []Document) {
	for _, d := range docs {
		if d.path == "" {
			continue
		}
		rel, err := filepath.Rel(dir, d.path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		os.Remove(d.path)
	}
}
