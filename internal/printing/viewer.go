package printing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ResponseViewer serves the document as the response of a request opened in a
// new tab.
type ResponseViewer struct {
	W http.ResponseWriter
	// Download sends the document as an attachment instead of inline.
	Download string
}

func (v ResponseViewer) Open(_ context.Context, doc Document) error {
	if v.W == nil {
		return ErrViewerUnavailable
	}
	h := v.W.Header()
	h.Set("Content-Type", doc.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(doc.Body)))
	h.Set("Cache-Control", "no-store")
	if v.Download != "" {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.Download))
	}
	v.W.WriteHeader(http.StatusOK)
	if _, err := v.W.Write(doc.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrViewerUnavailable, err)
	}
	return nil
}
