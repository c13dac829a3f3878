// Package api exposes HTTP handlers for the devguard service.
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/observability"
	"example.com/devguard/internal/persistence"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, now: time.Now}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/developers", h.developers)
	mux.HandleFunc("/api/developers/{id}", h.developerByID)
	mux.HandleFunc("/api/activity", h.activity)
	mux.HandleFunc("/api/activity/{id}", h.activityByID)
	mux.HandleFunc("/api/activities", h.activities)
	mux.HandleFunc("/api/metrics/{developerId}", h.developerMetrics)
	mux.HandleFunc("/api/dashboard/{developerId}", h.dashboard)
	mux.HandleFunc("/api/insights", h.insights)
	mux.HandleFunc("/api/insights/{id}", h.insightByID)
	mux.HandleFunc("/api/trends", h.trends)
	mux.HandleFunc("/api/trends/export", h.exportTrends)
	mux.HandleFunc("/api/summary", h.summary)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) developers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listDevelopers(w, r)
	case http.MethodPost:
		h.createDeveloper(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) developerByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dev, err := h.service.DeleteDeveloper(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.ForgetDeveloper(dev.ID)
	writeJSON(w, http.StatusOK, toDeveloperView(*dev))
}

func (h *Handler) listDevelopers(w http.ResponseWriter, r *http.Request) {
	devs, err := h.service.ListDevelopers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]DeveloperView, 0, len(devs))
	for _, d := range devs {
		items = append(items, toDeveloperView(d))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createDeveloper(w http.ResponseWriter, r *http.Request) {
	var req CreateDeveloperRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dev, err := h.service.CreateDeveloper(r.Context(), domain.CreateDeveloperInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeveloperView(*dev))
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req LogActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, err := h.service.LogActivity(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*record))
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	record, err := h.service.DeleteActivity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*record))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	developerID, ok := queryID(w, q.Get("developer_id"))
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxPageSize)
	}

	cursor, err := persistence.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListActivity(r.Context(), domain.ActivityFilter{
		DeveloperID: developerID,
		Cursor:      cursor,
		Limit:       limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := ListActivitiesResponse{
		Items:      make([]ActivityView, 0, len(records)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, rec := range records {
		resp.Items = append(resp.Items, toActivityView(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) developerMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r, "developerId")
	if !ok {
		return
	}

	metrics, err := h.service.DeveloperMetrics(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	observability.RecordAssessment(metrics.Assessment.RiskLevel)
	observability.SetBurnoutScore(id, metrics.Assessment.Score)

	resp := MetricsResponse{
		Developer:  toDeveloperView(metrics.Developer),
		Activities: make([]ActivityView, 0, len(metrics.Activities)),
		LatestMetric: LatestMetricView{
			BurnoutScore: metrics.Assessment.Score,
			RiskLevel:    string(metrics.Assessment.RiskLevel),
		},
		Insights: make([]InsightView, 0, len(metrics.Insights)),
	}
	for _, rec := range metrics.Activities {
		resp.Activities = append(resp.Activities, toActivityView(rec))
	}
	for _, in := range metrics.Insights {
		resp.Insights = append(resp.Insights, toInsightView(in))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r, "developerId")
	if !ok {
		return
	}
	http.Redirect(w, r, "/api/metrics/"+strconv.FormatInt(id, 10), http.StatusTemporaryRedirect)
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listInsights(w, r, 0)
	case http.MethodPost:
		h.saveInsight(w, r)
	default:
		methodNotAllowed(w)
	}
}

// insightByID reads {id} as a developer id for GET and as an insight id for DELETE.
func (h *Handler) insightByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listInsights(w, r, id)
	case http.MethodDelete:
		insight, err := h.service.DeleteInsight(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toInsightView(*insight))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) listInsights(w http.ResponseWriter, r *http.Request, developerID int64) {
	insights, err := h.service.ListInsights(r.Context(), developerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]InsightView, 0, len(insights))
	for _, in := range insights {
		items = append(items, toInsightView(in))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) saveInsight(w http.ResponseWriter, r *http.Request) {
	var req SaveInsightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	severity, err := domain.ParseRiskLevel(req.Severity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	insight, err := h.service.SaveInsight(r.Context(), domain.SaveInsightInput{
		DeveloperID: req.DeveloperID,
		Text:        req.Text,
		Severity:    severity,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInsightView(*insight))
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadTrend(w, r)
	if !ok {
		return
	}
	items := make([]TrendPointView, 0, len(points))
	for _, p := range points {
		items = append(items, toTrendPointView(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) exportTrends(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadTrend(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("DevGuard_Intelligence_%s.csv", h.now().UTC().Format(domain.DateLayout))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := WriteTrendCSV(w, points); err != nil {
		h.logger.Error("trend export failed", slog.Any("error", err))
	}
}

// WriteTrendCSV renders points with the Date,Commits,PRs,Tasks,Meetings,WorkHours header.
func WriteTrendCSV(w io.Writer, points []domain.TrendPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Commits", "PRs", "Tasks", "Meetings", "WorkHours"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			p.Date.Format(domain.DateLayout),
			strconv.Itoa(p.Commits),
			strconv.Itoa(p.PullRequests),
			strconv.Itoa(p.TasksCompleted),
			strconv.Itoa(p.Meetings),
			strconv.FormatFloat(p.WorkHours, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) loadTrend(w http.ResponseWriter, r *http.Request) ([]domain.TrendPoint, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return nil, false
	}

	q := r.URL.Query()
	developerID, ok := queryID(w, q.Get("developer_id"))
	if !ok {
		return nil, false
	}
	rng, err := domain.ParseTrendRange(q.Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return nil, false
	}

	points, err := h.service.Trend(r.Context(), developerID, rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return points, true
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryView{
		Developers:       summary.Developers,
		Records:          summary.Records,
		TotalCommits:     summary.TotalCommits,
		TotalTasks:       summary.TotalTasks,
		TotalWorkHours:   summary.TotalWorkHours,
		AverageWorkHours: summary.AverageWorkHours,
		Roles:            summary.Roles,
	})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		h.logger.Error("store unavailable", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "data store unavailable")
	default:
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id; empty means "all".
func queryID(w http.ResponseWriter, raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid developer_id %q", raw))
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
