package intake

import (
	"os"

	rpdf "rsc.io/pdf"
)

// pageCount is best effort: malformed or encrypted files report 0 rather
// than failing intake, since the model reads the bytes itself.
func pageCount(path string) (n int) {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0
	}
	// rsc.io/pdf panics on some malformed xref tables.
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	doc, err := rpdf.NewReader(f, st.Size())
	if err != nil {
		return 0
	}
	return doc.NumPage()
}
