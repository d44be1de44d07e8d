package http

import (
	"net/http"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/cors"
)

// Services bundles the use cases the HTTP layer exposes.
type Services struct {
	Auth        *app.AuthService
	Profiles    *app.ProfileService
	Quizzes     *app.QuizService
	Attempts    *app.AttemptService
	Leaderboard *app.LeaderboardHub
	Tokens      *security.TokenIssuer
}

type RouterConfig struct {
	CORSOrigins []string
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(jwtauth.Verify(svc.Tokens.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, security.TokenFromQuery))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	auth := &authHandler{auth: svc.Auth}
	profiles := &profileHandler{profiles: svc.Profiles}
	quizzes := &quizHandler{quizzes: svc.Quizzes}
	board := &leaderboardHandler{board: svc.Leaderboard, upgrader: newUpgrader(cfg.CORSOrigins)}
	attempts := &attemptHandler{attempts: svc.Attempts, upgrader: newUpgrader(cfg.CORSOrigins)}

	// websocket routes stay outside the request timeout
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Group(func(public chi.Router) {
			public.Use(chiMiddleware.Timeout(30 * time.Second))
			public.Post("/auth/signup", auth.signup)
			public.Post("/auth/login", auth.login)
			public.Get("/leaderboard", board.top)
		})
		v1.Get("/leaderboard/ws", board.stream)

		v1.Group(func(private chi.Router) {
			private.Use(authenticator)
			private.Get("/quizzes/{id}/attempt/ws", attempts.serveWS)

			private.Group(func(api chi.Router) {
				api.Use(chiMiddleware.Timeout(30 * time.Second))

				api.Get("/me", profiles.me)
				api.Patch("/me", profiles.update)
				api.Get("/me/results", profiles.results)
				api.Get("/me/quizzes", quizzes.listMine)

				api.Post("/quizzes", quizzes.create)
				api.Get("/quizzes/code/{code}", quizzes.getByCode)
				api.Get("/quizzes/{id}", quizzes.get)
				api.Put("/quizzes/{id}", quizzes.update)
				api.Delete("/quizzes/{id}", quizzes.delete)
				api.Post("/quizzes/{id}/submit", quizzes.submit)
				api.Get("/quizzes/{id}/snapshot", quizzes.getSnapshot)
				api.Put("/quizzes/{id}/snapshot", quizzes.putSnapshot)
				api.Delete("/quizzes/{id}/snapshot", quizzes.deleteSnapshot)

				api.With(adminOnly).Put("/admin/users/{id}/xp", profiles.setXP)
			})
		})
	})

	return corsOptions(cfg.CORSOrigins).Handler(r)
}

// corsOptions allows credentials only for explicitly listed origins. Without a
// list any origin may call the API with a bearer token but no cookie.
func corsOptions(origins []string) *cors.Cors {
	credentials := len(origins) > 0
	for _, origin := range origins {
		if origin == "*" {
			credentials = false
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: credentials,
	})
}
