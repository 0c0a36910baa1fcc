package handlers

import (
	"io"
	"net/http"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/imagemeta"
	"github.com/kozaktomas/face-catalog/internal/web/middleware"
)

// maxUploadBytes caps identify uploads at 20 MB.
const maxUploadBytes = 20 << 20

// IdentifyHandler handles the identification endpoint.
type IdentifyHandler struct {
	catalog *catalog.Catalog
}

func NewIdentifyHandler(cat *catalog.Catalog) *IdentifyHandler {
	return &IdentifyHandler{catalog: cat}
}

// Identify accepts a multipart image upload under the "file" field and
// returns ranked identity candidates for every detected face. Nothing
// is written to the catalog.
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondCatalogError(w, catalog.ErrEmptyUpload)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if len(data) == 0 {
		respondCatalogError(w, catalog.ErrEmptyUpload)
		return
	}
	if _, _, _, err := imagemeta.Probe(data); err != nil {
		respondError(w, http.StatusBadRequest, "upload is not a supported image")
		return
	}

	results, err := h.catalog.Identify(r.Context(), middleware.AccountID(r.Context()), data)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": results})
}
