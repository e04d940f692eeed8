package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/swayam1998/geoquests/internal/config"
	authsvc "github.com/swayam1998/geoquests/internal/services/auth"
	subsvc "github.com/swayam1998/geoquests/internal/services/submissions"
	"github.com/swayam1998/geoquests/internal/transport/http/handlers"
)

type Dependencies struct {
	SubmissionService *subsvc.Service
	JWTManager        *authsvc.JWTManager
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	submissionHandler := handlers.NewSubmissionHandler(
		deps.SubmissionService,
		deps.Config.Verification.MaxImageSizeMB,
		deps.Config.Verification.AllowedImageTypes,
	)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Post("/submissions", submissionHandler.Create)
		r.With(authMW).Get("/submissions/{id}", submissionHandler.Get)
		r.With(authMW).Get("/quests/{id}/submissions", submissionHandler.ListByQuest)
	})
}
