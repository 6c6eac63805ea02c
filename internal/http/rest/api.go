package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwise1/skipvote_bot/config"
	deps "github.com/bwise1/skipvote_bot/internal/debs"
	"github.com/bwise1/skipvote_bot/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second

	maxBodyBytes = 1 << 20
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

// SlackHandler answers a slash command; Slack always expects a 200.
type SlackHandler func(w http.ResponseWriter, r *http.Request) *SlackResponse

func (h SlackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal slack response")
		return
	}
	writeJSONResponse(w, respByte, http.StatusOK)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
	Logger *slog.Logger
	Now    func() time.Time
}

func (api *API) Init() {
	if api.Logger == nil {
		api.Logger = slog.Default()
	}
	if api.Now == nil {
		api.Now = time.Now
	}
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(RequestTracing)
	mux.Use(api.RequestLogger)

	mux.Get("/healthz", api.Health)
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(api.Deps.Registry, promhttp.HandlerOpts{}))

	mux.Mount("/slack", api.SlackRoutes())
	mux.Mount("/skip-votes", api.SkipVoteRoutes())
	mux.Mount("/oauth", api.OAuthRoutes())

	return mux
}

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := api.Deps.Store.Ping(ctx); err != nil {
		writeErrorResponse(w, err, values.Retry, "store unavailable")
		return
	}
	body, _ := json.Marshal(&ServerResponse{Message: "ok", Status: values.Success})
	writeJSONResponse(w, body, http.StatusOK)
}

func (api *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
