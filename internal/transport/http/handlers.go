package http

import (
	"log/slog"
	"net/http"
	"placefeeds/internal/usecase"
	"time"

	httputils "github.com/Fau1con/renderresponse"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// RunStatus - источник сведений о запусках обновления.
type RunStatus interface {
	LastRun() (usecase.RunResult, bool)
	Running() bool
}

type Api struct {
	mux    *http.ServeMux
	status RunStatus
	log    *slog.Logger
}

func NewApi(status RunStatus, log *slog.Logger) *Api {
	api := Api{
		mux:    http.NewServeMux(),
		status: status,
		log:    log,
	}
	api.endpoints()
	return &api
}

// Метод регистратор endpoint-ов.
func (api *Api) endpoints() {
	// итог последнего обновления лент
	api.mux.HandleFunc("/status", api.StatusHandler)
	api.mux.Handle("/metrics", promhttp.Handler())
}

func (api *Api) Router() http.Handler {
	return api.mux
}

type feedStatus struct {
	FeedID      int64             `json:"feed_id"`
	Title       string            `json:"title"`
	Outcome     usecase.Outcome   `json:"outcome"`
	New         int               `json:"new"`
	Updated     int               `json:"updated"`
	Unchanged   int               `json:"unchanged"`
	Failed      int               `json:"failed"`
	Images      int               `json:"images"`
	ImageErrors map[string]string `json:"image_errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
}

type runStatus struct {
	Started     time.Time    `json:"started"`
	Finished    time.Time    `json:"finished"`
	Updated     int          `json:"updated"`
	NotModified int          `json:"not_modified"`
	FetchFailed int          `json:"fetch_failed"`
	ParseFailed int          `json:"parse_failed"`
	Feeds       []feedStatus `json:"feeds"`
}

type statusResponse struct {
	Running bool       `json:"running"`
	LastRun *runStatus `json:"last_run"`
}

func (api *Api) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !httputils.ValidateMethod(w, r, http.MethodGet, http.MethodOptions) {
		return
	}

	resp := statusResponse{Running: api.status.Running()}
	if last, ok := api.status.LastRun(); ok {
		resp.LastRun = toRunStatus(last)
	}

	httputils.RenderJSON(w, resp, http.StatusOK)
}

func toRunStatus(run usecase.RunResult) *runStatus {
	return &runStatus{
		Started:     run.Started,
		Finished:    run.Finished,
		Updated:     run.Count(usecase.OutcomeUpdated),
		NotModified: run.Count(usecase.OutcomeNotModified),
		FetchFailed: run.Count(usecase.OutcomeFetchFailed),
		ParseFailed: run.Count(usecase.OutcomeParseFailed),
		Feeds: lo.Map(run.Feeds, func(f usecase.FeedResult, _ int) feedStatus {
			fs := feedStatus{
				FeedID:      f.FeedID,
				Title:       f.Title,
				Outcome:     f.Outcome,
				New:         f.New,
				Updated:     f.Updated,
				Unchanged:   f.Unchanged,
				Failed:      f.Failed,
				Images:      len(f.Images),
				ImageErrors: f.ImageErrors,
				DurationMS:  f.Duration.Milliseconds(),
			}
			if f.Err != nil {
				fs.Error = f.Err.Error()
			}
			return fs
		}),
	}
}
