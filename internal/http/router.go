package httpapi

import (
	"net/http"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Router gorilla/mux 封装；中间件通过 Use 挂在根路由上
type Router struct {
	mux    *mux.Router
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    mux.NewRouter(),
		logger: logger,
	}
}

func (r *Router) Use(mws ...mux.MiddlewareFunc) {
	r.mux.Use(mws...)
}

func (r *Router) Handle(path string, h http.HandlerFunc, methods ...string) *mux.Route {
	route := r.mux.HandleFunc(path, h)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
	return route
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterClinicalRoutes analyzeMW 只作用于 analyze（限流）
func (r *Router) RegisterClinicalRoutes(h *ClinicalHandler, analyzeMW ...mux.MiddlewareFunc) {
	var analyze http.Handler = http.HandlerFunc(h.Analyze)
	for i := len(analyzeMW) - 1; i >= 0; i-- {
		analyze = analyzeMW[i](analyze)
	}
	// 不限定 method：非 POST 由 handler 返回 405
	r.mux.Handle("/api/clinical/analyze", analyze)

	r.Handle("/api/clinical/sessions/{id}/latest", h.GetLatest, http.MethodGet)
	r.Handle("/api/clinical/summaries/export", h.ExportSummaries, http.MethodGet)
	r.Handle("/api/clinical/summaries", h.ListSummaries, http.MethodGet)
}

// RegisterOpsRoutes /healthz 与 /metrics
func (r *Router) RegisterOpsRoutes(collector *metrics.Collector) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	}, http.MethodGet)

	if collector != nil {
		r.mux.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}
}
