package handlers

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/applier"
	"github.com/provisionworks/orchard/pkg/jobstore"
)

// maxApplyPayload bounds the accepted manifest size.
const maxApplyPayload = 4 << 20

// ApplyHandler starts a multi-document apply job from a raw YAML
// payload. The payload is split and validated synchronously; the
// applies themselves run in the background.
func (h *Handlers) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxApplyPayload+1))
	if err != nil {
		respondWithError(w, r, apperrors.Validation("failed to read request body"))
		return
	}
	if len(payload) == 0 {
		respondWithError(w, r, apperrors.Validation("empty manifest payload"))
		return
	}
	if len(payload) > maxApplyPayload {
		respondWithError(w, r, apperrors.Validation("manifest payload too large"))
		return
	}

	docs, err := applier.SplitDocuments(payload)
	if err != nil {
		respondWithError(w, r, apperrors.Validation(err.Error()))
		return
	}
	if len(docs) == 0 {
		respondWithError(w, r, apperrors.Validation("no documents in payload"))
		return
	}

	jobID := h.store.Create(jobstore.KindMultiDocumentApply, map[string]string{
		"documents":      strconv.Itoa(len(docs)),
		"first_document": docs[0].Kind + "/" + docs[0].Name,
	})
	if err := h.applier.Apply(jobID, docs); err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	h.logger.Info("apply job submitted",
		zap.String("job_id", jobID),
		zap.Int("documents", len(docs)))

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    jobID,
		"documents": len(docs),
		"message":   "Apply started",
		"status":    jobstore.StatusPending,
	})
}
