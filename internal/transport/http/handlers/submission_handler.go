package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	"github.com/swayam1998/geoquests/internal/pkg/validate"
	authsvc "github.com/swayam1998/geoquests/internal/services/auth"
	subsvc "github.com/swayam1998/geoquests/internal/services/submissions"
	"github.com/swayam1998/geoquests/internal/transport/http/dto"
	httperrors "github.com/swayam1998/geoquests/internal/transport/http/errors"
)

const defaultMaxUploadSize = 10 << 20 // 10 MiB

type SubmissionHandler struct {
	service       *subsvc.Service
	maxUploadSize int64
	allowedTypes  map[string]struct{}
}

func NewSubmissionHandler(service *subsvc.Service, maxImageSizeMB int, allowedImageTypes []string) *SubmissionHandler {
	maxSize := int64(maxImageSizeMB) << 20
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}

	allowed := make(map[string]struct{}, len(allowedImageTypes))
	for _, t := range allowedImageTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	if len(allowed) == 0 {
		allowed["image/jpeg"] = struct{}{}
	}

	return &SubmissionHandler{
		service:       service,
		maxUploadSize: maxSize,
		allowedTypes:  allowed,
	}
}

// Create accepts a multipart attempt: a photo part plus quest and location
// fields. The verdict comes back in the same response; there is no polling.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SUBMISSION_SERVICE_UNAVAILABLE", "submission service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form or image too large")
		return
	}

	questID, err := uuid.Parse(r.FormValue("quest_id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "quest_id must be a uuid")
		return
	}

	location, ok := parseLocation(w, r)
	if !ok {
		return
	}

	captureMethod := enums.CaptureMethodLive
	if raw := r.FormValue("capture_method"); raw != "" {
		method, ok := enums.ParseCaptureMethod(raw)
		if !ok {
			writeBadRequest(w, "VALIDATION_ERROR", "capture_method must be live or upload")
			return
		}
		captureMethod = method
	}

	capturedAt := time.Now().UTC()
	if raw := r.FormValue("captured_at"); validate.Required(raw) {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "captured_at must be RFC3339")
			return
		}
		capturedAt = parsed
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "photo is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "photo is empty")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if _, ok := h.allowedTypes[contentType]; !ok {
		writeBadRequest(w, "UNSUPPORTED_IMAGE_TYPE", "photo content type is not allowed")
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "failed to read photo")
		return
	}

	submission, err := h.service.Submit(r.Context(), subsvc.SubmitInput{
		QuestID:       questID,
		ExplorerID:    identity.UserID,
		Image:         image,
		Location:      location,
		CapturedAt:    capturedAt,
		CaptureMethod: captureMethod,
	})
	if err != nil {
		handleSubmissionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.NewSubmissionResponse(submission, ""))
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SUBMISSION_SERVICE_UNAVAILABLE", "submission service is unavailable")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "submission id must be a uuid")
		return
	}

	view, err := h.service.Get(r.Context(), id, identity.UserID)
	if err != nil {
		handleSubmissionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewSubmissionResponse(view.Submission, view.ImageURL))
}

func (h *SubmissionHandler) ListByQuest(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SUBMISSION_SERVICE_UNAVAILABLE", "submission service is unavailable")
		return
	}

	questID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "quest id must be a uuid")
		return
	}

	var status *enums.SubmissionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := enums.ParseSubmissionStatus(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown status filter")
			return
		}
		status = &parsed
	}

	views, err := h.service.ListByQuest(r.Context(), questID, identity.UserID, status)
	if err != nil {
		handleSubmissionError(w, err)
		return
	}

	items := make([]dto.SubmissionResponse, 0, len(views))
	for _, view := range views {
		items = append(items, dto.NewSubmissionResponse(view.Submission, view.ImageURL))
	}

	httperrors.Write(w, http.StatusOK, dto.SubmissionListResponse{Items: items})
}

func parseLocation(w http.ResponseWriter, r *http.Request) (model.Location, bool) {
	lat, err := strconv.ParseFloat(r.FormValue("lat"), 64)
	if err != nil || !validate.Latitude(lat) {
		writeBadRequest(w, "VALIDATION_ERROR", "lat must be a number in [-90, 90]")
		return model.Location{}, false
	}

	lng, err := strconv.ParseFloat(r.FormValue("lng"), 64)
	if err != nil || !validate.Longitude(lng) {
		writeBadRequest(w, "VALIDATION_ERROR", "lng must be a number in [-180, 180]")
		return model.Location{}, false
	}

	location := model.Location{Lat: lat, Lng: lng}
	if raw := r.FormValue("accuracy_m"); validate.Required(raw) {
		accuracy, err := strconv.ParseFloat(raw, 64)
		if err != nil || accuracy < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "accuracy_m must be a non-negative number")
			return model.Location{}, false
		}
		location.AccuracyM = &accuracy
	}

	return location, true
}

func handleSubmissionError(w http.ResponseWriter, err error) {
	var rateErr *subsvc.RateLimitedError
	switch {
	case errors.As(err, &rateErr):
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "RATE_LIMITED",
			Message:       "too many submissions, slow down",
			RetryAfterSec: rateErr.RetryAfterSec,
		})
	case errors.Is(err, subsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid submission request")
	case errors.Is(err, subsvc.ErrQuestNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "QUEST_NOT_FOUND",
			Message: "quest not found",
		})
	case errors.Is(err, subsvc.ErrQuestNotActive):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "QUEST_NOT_ACTIVE",
			Message: "quest is not accepting submissions",
		})
	case errors.Is(err, subsvc.ErrNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "SUBMISSION_NOT_FOUND",
			Message: "submission not found",
		})
	case errors.Is(err, subsvc.ErrAccessDenied):
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "ACCESS_DENIED",
			Message: "you may not view this submission",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "submission operation failed")
	}
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
