package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/models"
	"kentj-backend/internal/services"
	"kentj-backend/pkg/httputil"

	"go.uber.org/zap"
)

// ProblemsService defines the interface expected from the community tracker proxy.
type ProblemsService interface {
	Process(ctx context.Context, req models.ProblemsRequest, userID string) (*models.ProblemsResponse, error)
	Query(ctx context.Context, action string, filters models.ProblemFilters) (*models.ProblemsResponse, error)
}

type ProblemsHandler struct {
	problems ProblemsService
	log      *zap.Logger
}

func NewProblemsHandler(problems ProblemsService, log *zap.Logger) *ProblemsHandler {
	return &ProblemsHandler{problems: problems, log: log.Named("problems_handler")}
}

// HandlePost handles POST /problems.
func (h *ProblemsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var req models.ProblemsRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID := ""
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		userID = id.UserID()
	}

	resp, err := h.problems.Process(r.Context(), req, userID)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			httputil.RespondError(w, http.StatusBadRequest, ve.Msg)
			return
		}
		h.log.Error("error processing problems request", zap.String("action", req.Action), zap.Error(err))
		httputil.RespondFailure(w, http.StatusInternalServerError,
			"Failed to process problems request", services.MsgProblemsDifficulties, models.FormatTime(time.Now()))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /problems?action=&area=&status=&priority=.
func (h *ProblemsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.ProblemFilters{
		Area:     optionalParam(q, "area"),
		Status:   optionalParam(q, "status"),
		Priority: optionalParam(q, "priority"),
	}

	resp, err := h.problems.Query(r.Context(), q.Get("action"), filters)
	if err != nil {
		h.log.Error("error processing problems GET request", zap.Error(err))
		httputil.RespondFailure(w, http.StatusInternalServerError,
			"Failed to retrieve problems data", services.MsgProblemsDifficulties, models.FormatTime(time.Now()))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// optionalParam distinguishes an absent parameter (nil) from an empty one.
func optionalParam(q map[string][]string, key string) *string {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}
