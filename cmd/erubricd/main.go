package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/api/http"
	auth "github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/auth/middleware"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/config"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/db"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/grading"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rbac"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	store := rubric.NewSQLStore(dbh, cfg.DBDriver)
	activityLog := enrich.NewSQLActivityLog(dbh)
	recorder := enrich.NewRecorder(dbh)
	svc := grading.NewService(store, activityLog)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	accounts := map[string]auth.Account{}
	if cfg.TeacherPassHash != "" {
		accounts[cfg.TeacherUser] = auth.Account{PassHash: cfg.TeacherPassHash, Role: "teacher"}
	}
	if cfg.StudentPassHash != "" {
		accounts[cfg.StudentUser] = auth.Account{PassHash: cfg.StudentPassHash, Role: "student"}
	}
	if cfg.AdminPassHash != "" {
		accounts[cfg.AdminUser] = auth.Account{PassHash: cfg.AdminPassHash, Role: "admin"}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, accounts))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("definition:view")).
			Get("/definitions", api.ListDefinitionsHandler(store))
		pr.With(rbac.Require("definition:view")).
			Get("/definitions/{definitionID}", api.GetDefinitionHandler(store))
		pr.With(rbac.Require("definition:edit")).
			Post("/definitions/check", api.CheckDefinitionHandler(svc))
		pr.With(rbac.Require("definition:edit")).
			Post("/definitions", api.SaveDefinitionHandler(svc))
		pr.With(rbac.Require("definition:delete")).
			Delete("/definitions/{definitionID}", api.DeleteDefinitionHandler(store))
		pr.With(rbac.Require("definition:regrade")).
			Post("/definitions/{definitionID}/regrade", api.RegradeHandler(svc))

		pr.With(rbac.Require("instance:grade")).
			Post("/instances", api.StartInstanceHandler(svc))
		pr.With(rbac.RequireAny("instance:view-own", "instance:view-all")).
			Get("/instances/{instanceID}", api.GetInstanceHandler(store))
		pr.With(rbac.Require("instance:grade")).
			Get("/instances/{instanceID}/evaluate", api.EvaluateHandler(svc, dbh))
		pr.With(rbac.Require("instance:grade")).
			Post("/instances/{instanceID}/fillings", api.SubmitHandler(svc, cfg))
		pr.With(rbac.Require("instance:grade")).
			Post("/instances/{instanceID}/cancel", api.CancelInstanceHandler(svc))
		pr.With(rbac.Require("instance:grade")).
			Post("/instances/{instanceID}/copy", api.CopyInstanceHandler(svc))

		pr.With(rbac.Require("activity:record")).
			Post("/activity/events", api.RecordActivityHandler(recorder))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("erubricd listening on %s (driver=%s mode=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.Mode)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("server: %v", err)
	}
}
