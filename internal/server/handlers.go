package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/internal/modelres"
	"github.com/hyperjump/essayscore/internal/storage"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; an exam of a few hundred essays fits easily.
const maxBodyBytes = 8 << 20

func (s *Server) handleScoreEssay(w http.ResponseWriter, r *http.Request) {
	var req models.SingleScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "key_answer is required")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "key_answer is required")
		return
	}
	res, err := s.scorer.ScoreOne(r.Context(), req.ToScoringRequest())
	if err != nil {
		s.internalError(w, r, "score failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SingleScoreResponse{
		SimilarityScore: res.SimilarityScore,
		FinalScore:      res.FinalScore,
		MaxScore:        res.MaxScore,
		Status:          models.StatusSuccess,
	})
}

func (s *Server) handleScoreExam(w http.ResponseWriter, r *http.Request) {
	var req models.BatchScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "answers array is required")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "answers array is required")
		return
	}

	raw := *req.Answers
	reqs := make([]models.ScoringRequest, len(raw))
	for i, item := range raw {
		sr, err := models.DecodeBatchAnswer(item)
		if err != nil {
			s.logger.Debug("malformed answer, using defaults",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Int("index", i),
				zap.Error(err),
			)
		}
		reqs[i] = sr
	}
	s.logger.Debug("score exam", zap.Int("answers", len(reqs)))

	res, err := s.scorer.ScoreBatch(r.Context(), reqs)
	if err != nil {
		s.internalError(w, r, "score exam failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:      "ok",
		ModelState:  s.models.State().String(),
		ModelSource: string(s.models.Source()),
		ModelID:     s.models.ModelID(),
	}
	if dir := s.dirs[s.models.Source()]; dir != "" {
		if st, err := storage.StatDir(dir); err == nil {
			resp.ModelFiles = st.Files
			resp.ModelDiskBytes = st.Bytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a single JSON value. Unknown fields are ignored;
// trailing data is not.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// internalError logs err and writes a 500, or a 504 when the request deadline
// expired mid-scoring. The error text reaches the client only in debug mode.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	status := http.StatusInternalServerError
	body := models.ErrorResponse{Error: "Internal server error", Status: models.StatusError}
	switch ctxErr := r.Context().Err(); {
	case errors.Is(err, modelres.ErrModelUnavailable):
		body.Error = "Scoring model unavailable"
	case errors.Is(ctxErr, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body.Error = "Request timed out"
	case ctxErr != nil:
		status = http.StatusServiceUnavailable
		body.Error = "Request cancelled"
	}
	if s.debug {
		body.Details = err.Error()
	}
	s.respondJSON(w, status, body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message, Status: models.StatusError})
}
