package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-catalog/internal/web/handlers"
	"github.com/kozaktomas/face-catalog/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.catalog)
	peopleHandler := handlers.NewPeopleHandler(s.catalog)
	identifyHandler := handlers.NewIdentifyHandler(s.catalog)
	statsHandler := handlers.NewStatsHandler(s.catalog)

	// Health check (no account required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAccount())

		// Faces
		r.Post("/assets/{assetID}/faces", facesHandler.Create)
		r.Get("/assets/{assetID}/faces", facesHandler.ListByAsset)
		r.Delete("/faces/{faceID}", facesHandler.Delete)
		r.Put("/faces/{faceID}/person", facesHandler.Assign)
		r.Delete("/faces/{faceID}/person", facesHandler.Detach)

		// Identification
		r.Post("/identify", identifyHandler.Identify)

		// People
		r.Post("/people", peopleHandler.Create)
		r.Get("/people", peopleHandler.List)
		r.Get("/people/{personID}", peopleHandler.Get)
		r.Put("/people/{personID}/name", peopleHandler.Rename)
		r.Put("/people/{personID}/representative", peopleHandler.SetRepresentative)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
