// Package server assembles the HTTP routes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/controller"
	"github.com/unclebandit/pipeshark-backend/internal/handler"
	"github.com/unclebandit/pipeshark-backend/internal/middleware"
)

type Deps struct {
	Campaigns      *handler.CampaignHandler
	CampaignAction *controller.CampaignController
	Accounts       *controller.AccountController
	Launch         *controller.LaunchController

	JWTSecret      string
	CronSecret     string
	AllowedOrigins []string
	Log            *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.RequireCronSecret(d.CronSecret, handler.WriteError)).
		Post("/cron/launch", d.Launch.Launch)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUser(d.JWTSecret, handler.WriteError))

		r.Get("/campaigns", d.Campaigns.ListCampaignsHandler)
		r.Post("/campaigns", d.Campaigns.CreateCampaignHandler)
		r.Get("/campaigns/{id}", d.Campaigns.GetCampaignHandlerWithStats)
		r.Put("/campaigns/{id}", d.Campaigns.UpdateCampaignHandler)
		r.Get("/campaigns/{id}/leads", d.Campaigns.ListLeadsHandler)
		r.Post("/campaigns/{id}/enqueue", d.CampaignAction.Enqueue)
		r.Patch("/leads/{id}/draft", d.Campaigns.UpdateLeadDraftHandler)

		r.Get("/queue", d.Accounts.ListQueue)
		r.Post("/queue/{id}/cancel", d.Accounts.CancelQueueItem)

		r.Get("/sender-accounts", d.Accounts.ListSenderAccounts)
		r.Post("/sender-accounts", d.Accounts.ConnectSenderAccount)

		r.Get("/schedule", d.Accounts.GetSchedule)
		r.Put("/schedule", d.Accounts.SaveSchedule)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
