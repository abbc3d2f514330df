package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const apiPrefix = "/health/api/v1"

// Router 使用标准库 http.ServeMux（带方法和路径参数的路由模式）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	r.mux.ServeHTTP(w, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("duration", time.Since(start)),
	)
}

// RegisterHealthRoutes 注册健康数据路由
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	// persons
	r.Handle("POST "+apiPrefix+"/persons/{id}/sync", h.SyncHealthData)
	r.Handle("GET "+apiPrefix+"/persons/{id}", h.GetHealthData)
	r.Handle("DELETE "+apiPrefix+"/persons/{id}", h.ClearHealthData)
	r.Handle("GET "+apiPrefix+"/persons/{id}/criteria", h.GetCriteria)
	r.Handle("GET "+apiPrefix+"/persons/{id}/alerts", h.GetAlerts)
	r.Handle("POST "+apiPrefix+"/persons/{id}/alerts/{alertId}/ack", h.AcknowledgeAlert)
	r.Handle("GET "+apiPrefix+"/persons/{id}/beds", h.FindBedsForPerson)

	// beds / priority / waitlist
	r.Handle("POST "+apiPrefix+"/beds/match", h.MatchBeds)
	r.Handle("POST "+apiPrefix+"/priority", h.PriorityScore)
	r.Handle("POST "+apiPrefix+"/waitlist", h.RankWaitlist)
	r.Handle("GET "+apiPrefix+"/waitlist/export", h.ExportWaitlist)

	r.Handle("GET "+apiPrefix+"/metrics", h.GetMetrics)
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("healthy"))
	})
}
