package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/infra/api"
	"translation-queue/internal/infra/logging"
	"translation-queue/internal/usecase"
)

const maxBodyBytes = 4 << 20

type Server struct {
	uc          usecase.TranslationUseCase
	submitGuard api.Middleware
	log         *zerolog.Logger
}

// NewServer builds the v1 handlers. submitGuard wraps job submission only,
// typically a rate limit; nil leaves it open.
func NewServer(uc usecase.TranslationUseCase, submitGuard api.Middleware, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{uc: uc, submitGuard: submitGuard, log: logger}
}

// RegisterAPIV1 mounts the v1 routes on r under absolute /api/v1 paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	submit := http.Handler(http.HandlerFunc(s.submitJob))
	if s.submitGuard != nil {
		submit = s.submitGuard(submit)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/jobs", submit)
		r.Get("/jobs/{id}", s.getJob)
		r.Post("/jobs/{id}/cancel", s.cancelJob)
		r.Get("/queue", s.getQueue)
		r.Post("/estimate", s.estimate)
	})
}

type SubmitJobRequest struct {
	Kind           string `json:"kind"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
	FileName       string `json:"file_name,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	FileType       string `json:"file_type,omitempty"`
}

type SubmitJobResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Position         int    `json:"position"`
	EstimatedCredits int    `json:"estimated_credits"`
}

type JobStatus struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	TotalChunks        int        `json:"total_chunks"`
	CompletedChunks    int        `json:"completed_chunks"`
	RetryCount         int        `json:"retry_count"`
	TranslatedText     string     `json:"translated_text,omitempty"`
	Error              string     `json:"error,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

type QueueJob struct {
	ID                 string `json:"id"`
	Kind               string `json:"kind"`
	Status             string `json:"status"`
	ProgressPercentage int    `json:"progress_percentage"`
	RetryCount         int    `json:"retry_count"`
}

type QueueStatus struct {
	Processing *QueueJob        `json:"processing,omitempty"`
	Pending    []QueueJob       `json:"pending"`
	Stats      model.QueueStats `json:"stats"`
}

type EstimateRequest struct {
	Text string `json:"text"`
}

type EstimateResponse struct {
	Characters int `json:"characters"`
	Credits    int `json:"credits"`
}

type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind := model.JobKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = model.JobKindText
	}
	var file *model.FileInfo
	if req.FileName != "" {
		file = &model.FileInfo{Name: req.FileName, Size: req.FileSize, Type: req.FileType}
	}

	res, err := s.uc.Submit(r.Context(), usecase.SubmitRequest{
		Kind:           kind,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Payload:        req.Text,
		OwnerID:        logging.OwnerID(r.Context()),
		File:           file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitJobResponse{
		ID:               res.JobID,
		Status:           string(model.JobStatusPending),
		Position:         res.Position,
		EstimatedCredits: res.Credits,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	v, err := s.uc.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JobStatus{
		ID:                 v.ID,
		Status:             string(v.Status),
		ProgressPercentage: v.Progress,
		TotalChunks:        v.TotalChunks,
		CompletedChunks:    v.CompletedChunks,
		RetryCount:         v.RetryCount,
		TranslatedText:     v.TranslatedText,
		Error:              v.Error,
		CreatedAt:          v.CreatedAt,
		CompletedAt:        v.CompletedAt,
	})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.uc.Cancel(r.Context(), id, logging.OwnerID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(model.JobStatusCancelled)})
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	snap := s.uc.Queue()
	out := QueueStatus{Pending: make([]QueueJob, 0, len(snap.Pending)), Stats: snap.Stats}
	if snap.Processing != nil {
		j := toQueueJob(snap.Processing)
		out.Processing = &j
	}
	for _, j := range snap.Pending {
		out.Pending = append(out.Pending, toQueueJob(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func toQueueJob(j *model.Job) QueueJob {
	return QueueJob{
		ID:                 j.ID,
		Kind:               string(j.Kind),
		Status:             string(j.Status),
		ProgressPercentage: j.Progress(),
		RetryCount:         j.RetryCount,
	}
}

func (s *Server) estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	chars, credits := s.uc.Estimate(req.Text)
	writeJSON(w, http.StatusOK, EstimateResponse{Characters: chars, Credits: credits})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", TraceID: logging.TraceID(r.Context())})
		return false
	}
	return true
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnsupportedLanguage),
		errors.Is(err, domain.ErrEmptyPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrJobNotCancellable), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{Error: msg, TraceID: logging.TraceID(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
