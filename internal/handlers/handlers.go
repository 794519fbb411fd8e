package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/PortNumber53/content-calendar/internal/auth"
	"github.com/PortNumber53/content-calendar/internal/calendar"
	"github.com/PortNumber53/content-calendar/internal/logger"
	"github.com/PortNumber53/content-calendar/internal/models"
)

const maxBodyBytes = 1 << 20

type Authenticator interface {
	Authenticate(ctx context.Context, headers http.Header) auth.Result
}

type Planner interface {
	PlanCalendar(ctx context.Context, userID string, brief calendar.Brief) (*calendar.Plan, error)
}

type Materializer interface {
	MaterializeItem(ctx context.Context, userID, itemID string) (models.GeneratedAsset, error)
}

// Reader serves the owner-scoped read endpoints.
type Reader interface {
	ListCalendars(ctx context.Context, userID string) ([]models.Calendar, error)
	GetCalendar(ctx context.Context, calendarID, userID string) (models.Calendar, []models.CalendarItem, error)
	ListAssets(ctx context.Context, itemID, userID string) ([]models.GeneratedAsset, error)
}

type Handler struct {
	auth         Authenticator
	planner      Planner
	materializer Materializer
	reader       Reader
	log          *logger.Logger
}

func New(a Authenticator, p Planner, m Materializer, r Reader, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{auth: a, planner: p, materializer: m, reader: r, log: log.With("component", "http")}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// CreateCalendar plans a calendar from the brief in the request body.
func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be read.")
		return
	}
	brief, err := calendar.DecodeBrief(body)
	if err != nil {
		h.writeCalendarError(w, err)
		return
	}

	plan, err := h.planner.PlanCalendar(r.Context(), userID, brief)
	if err != nil {
		h.writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Content calendar created successfully!",
		"calendar": plan.Calendar,
		"items":    plan.Items,
	})
}

type createContentItemRequest struct {
	CalendarItemID string `json:"calendar_item_id"`
}

// CreateContentItem generates the asset for one planned calendar item.
func (h *Handler) CreateContentItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req createContentItemRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	asset, err := h.materializer.MaterializeItem(r.Context(), userID, req.CalendarItemID)
	if err != nil {
		h.writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Content item generated successfully!",
		"asset":   asset,
	})
}

func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	cals, err := h.reader.ListCalendars(r.Context(), userID)
	if err != nil {
		h.writeReadError(w, err, "Failed to list calendars.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": cals})
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	cal, items, err := h.reader.GetCalendar(r.Context(), pathVar(r, "id"), userID)
	if err != nil {
		h.writeReadError(w, err, "Failed to load calendar.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendar": cal, "items": items})
}

func (h *Handler) ListItemAssets(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	assets, err := h.reader.ListAssets(r.Context(), pathVar(r, "id"), userID)
	if err != nil {
		h.writeReadError(w, err, "Failed to list assets.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

// authenticate writes 401 and returns false when the caller is not verified.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	res := h.auth.Authenticate(r.Context(), r.Header)
	if !res.OK() {
		reason, msg := auth.ReasonInvalid, "Invalid or expired token"
		if res.Rejection != nil {
			reason, msg = res.Rejection.Reason, res.Rejection.Message
		}
		h.log.Info("request rejected", "path", r.URL.Path, "reason", reason)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg, "reason": string(reason)})
		return "", false
	}
	return res.UserID, true
}

func statusForKind(k calendar.Kind) int {
	switch k {
	case calendar.KindClient:
		return http.StatusBadRequest
	case calendar.KindAuth:
		return http.StatusUnauthorized
	case calendar.KindNotFound:
		return http.StatusNotFound
	case calendar.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeCalendarError(w http.ResponseWriter, err error) {
	var ce *calendar.Error
	if !errors.As(err, &ce) {
		h.log.Error("unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	body := map[string]string{"error": ce.Message}
	if d := ce.Details(); d != "" && (ce.Kind == calendar.KindUpstream || ce.Kind == calendar.KindPersistence) {
		body["details"] = d
	}
	if ce.RawOutput != "" {
		body["rawOutput"] = ce.RawOutput
	}
	writeJSON(w, statusForKind(ce.Kind), body)
}

func (h *Handler) writeReadError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, calendar.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found or access denied.")
		return
	}
	h.log.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
