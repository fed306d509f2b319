package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// maxDiffSize bounds the request body of an assessment
const maxDiffSize = 8 << 20

// AssessRequest is the JSON body of POST /api/assessments. A plain text body is taken as the diff.
type AssessRequest struct {
	Source string `json:"source"`
	Diff   string `json:"diff"`
}

// AssessHandler runs a synchronous assessment over a posted diff
type AssessHandler struct {
	assessUC interfaces.AssessmentUseCase
}

func NewAssessHandler(assessUC interfaces.AssessmentUseCase) *AssessHandler {
	return &AssessHandler{assessUC: assessUC}
}

func (h *AssessHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	req, err := decodeAssessRequest(w, r)
	if err != nil {
		logger.Warn("Invalid assessment request", "error", err)
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	assessment, err := h.assessUC.Assess(ctx, req.Source, req.Diff)
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "assessment failed", goerr.V("source", req.Source)), http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, assessment)
}

func decodeAssessRequest(w http.ResponseWriter, r *http.Request) (*AssessRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDiffSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read request body")
	}
	defer r.Body.Close()

	req := &AssessRequest{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, goerr.Wrap(err, "invalid JSON body")
		}
	} else {
		req.Diff = string(body)
	}

	if strings.TrimSpace(req.Diff) == "" {
		return nil, goerr.New("diff is empty")
	}
	if req.Source == "" {
		req.Source = "http"
	}
	return req, nil
}
