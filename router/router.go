// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/handlers"
	"github.com/danielhkuo/campus-mess/middleware"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
	"github.com/danielhkuo/campus-mess/session"
)

// requestTimeout bounds every route except the watch stream.
const requestTimeout = 30 * time.Second

func NewRouter(db *sql.DB, cfg cliparse.Config, store remote.Store, sessions *session.Manager, sched *schedule.Scheduler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.WithLogging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS())

	// Initialize handlers
	ownerHandler := handlers.NewOwnerHandler(store, cfg)
	listingHandler := handlers.NewListingHandler(store, cfg)
	voteHandler := handlers.NewVoteHandler(store)
	watchHandler := handlers.NewWatchHandler(store)
	adminHandler := handlers.NewAdminHandler(store, sched, cfg)
	suggestionHandler := handlers.NewSuggestionHandler(store)
	deviceHandler := handlers.NewDeviceHandler(db)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1", func(r chi.Router) {
		// Long-lived, so outside the timeout group
		r.Get("/watch", watchHandler.Watch)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			// Owner signup and self-service
			r.Post("/owners", ownerHandler.Register)
			r.Route("/owners/{uid}", func(r chi.Router) {
				r.Use(middleware.RequireOwner(cfg.OwnerKeySalt))
				r.With(middleware.OptionalSession(sessions)).Get("/", ownerHandler.Get)
				r.Patch("/profile", ownerHandler.UpdateProfile)
				r.Put("/status", ownerHandler.SetStatus)
				r.Get("/menu", ownerHandler.GetMenu)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSession(sessions))
					r.Put("/menu", ownerHandler.PutMenu)
					r.Put("/edit-mode", ownerHandler.SetEditMode)
				})
			})

			// Public browsing
			r.Get("/listings", listingHandler.List)
			r.Get("/listings/{uid}", listingHandler.Get)
			r.Get("/suggestions", suggestionHandler.List)

			// Per-device state
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession(sessions))
				r.Get("/votes/{serviceId}/{day}/{meal}/{item}", voteHandler.Get)
				r.Post("/votes/{serviceId}/{day}/{meal}/{item}", voteHandler.Like)
				r.Get("/devices/me", deviceHandler.GetMe)
			})

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", adminHandler.Login)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(cfg.SessionSecret))
					r.Get("/owners", adminHandler.ListOwners)
					r.Delete("/owners/{uid}", adminHandler.DeleteOwner)
					r.Put("/status/{type}", adminHandler.MasterToggle)
					r.Get("/scheduler", adminHandler.SchedulerStatus)
					r.Put("/scheduler/settings", adminHandler.SaveSchedulerSettings)
					r.Put("/scheduler/enabled", adminHandler.SetSchedulerEnabled)
					r.Post("/scheduler/resume", adminHandler.ResumeScheduler)
					r.Get("/suggestions", suggestionHandler.List)
					r.Post("/suggestions", suggestionHandler.Add)
					r.Delete("/suggestions/{id}", suggestionHandler.Delete)
				})
			})
		})
	})

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campus-mess API v1"))
	})

	return r
}
