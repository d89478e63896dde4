package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"certflow/internal/apperr"
)

const maxDossierUpload = 32 << 20 // 32 MiB

func (s *Server) handleUploadDossier(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxDossierUpload); err != nil {
		writeError(w, apperr.Validationf("invalid multipart body: %v", err))
		return
	}
	documentType := r.FormValue("document_type")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("missing file part"))
		return
	}
	defer file.Close()

	item, err := s.dossier.Upload(r.Context(), callerID(r), chi.URLParam(r, "id"), documentType, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (s *Server) handleListDossier(w http.ResponseWriter, r *http.Request) {
	items, err := s.dossier.List(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *Server) handleMissingDossier(w http.ResponseWriter, r *http.Request) {
	missing, err := s.dossier.Missing(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, missing)
}

func (s *Server) handleSubmitDossier(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.SubmitDossier(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDossier(w http.ResponseWriter, r *http.Request) {
	if err := s.dossier.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
