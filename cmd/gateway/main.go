package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	api "github.com/gameCahya/tryout-tka-sub000/internal/api/http"
	"github.com/gameCahya/tryout-tka-sub000/internal/attempt"
	auth "github.com/gameCahya/tryout-tka-sub000/internal/auth/middleware"
	"github.com/gameCahya/tryout-tka-sub000/internal/config"
	"github.com/gameCahya/tryout-tka-sub000/internal/db"
	"github.com/gameCahya/tryout-tka-sub000/internal/eventlog"
	"github.com/gameCahya/tryout-tka-sub000/internal/notify"
	"github.com/gameCahya/tryout-tka-sub000/internal/payment"
	"github.com/gameCahya/tryout-tka-sub000/internal/rbac"
	"github.com/gameCahya/tryout-tka-sub000/internal/storage"
	"github.com/gameCahya/tryout-tka-sub000/internal/tryout"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	store := tryout.NewSQLStore(dbh)
	payStore := payment.NewSQLStore(dbh)
	events := eventlog.NewRepo(dbh)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.JWTSecret)

	// --- Domain services ---
	coord := attempt.NewCoordinator(store, events, log)

	gateway := payment.NewGatewayClient(cfg.PaymentBaseURL, cfg.PaymentMerchantCode,
		cfg.PaymentAPIKey, cfg.PaymentCallbackURL, cfg.PaymentReturnURL)
	wa := notify.NewWhatsAppClient(cfg.WhatsAppBaseURL, cfg.WhatsAppToken, cfg.WhatsAppAdminPhone)
	paySvc := payment.NewService(payStore, gateway, wa, events, log)

	bs, err := storage.NewFSStore(cfg.AssetBasePath)
	if err != nil {
		log.WithError(err).Fatal("blob store")
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface
	r.Post("/auth/register", api.RegisterHandler(dbh, authSvc))
	r.Post("/auth/login", api.LoginHandler(dbh, authSvc))
	r.Post("/payments/callback", api.PaymentCallbackHandler(paySvc, store, dbh, log))
	r.Get("/assets/{key}", api.ServeAssetHandler(bs))

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Get("/auth/me", api.MeHandler(dbh))

		// Student flow
		pr.With(rbac.Require("tryout:view")).
			Get("/tryouts", api.ListTryoutsHandler(store))
		pr.With(rbac.Require("tryout:view")).
			Get("/tryouts/{tryoutID}", api.GetTryoutHandler(store))

		pr.With(rbac.Require("attempt:start")).
			Post("/tryouts/{tryoutID}/attempt", api.StartAttemptHandler(coord, store))
		pr.With(rbac.Require("attempt:start")).
			Get("/tryouts/{tryoutID}/attempt", api.AttemptStatusHandler(coord))
		pr.With(rbac.Require("attempt:save")).
			Put("/tryouts/{tryoutID}/attempt/draft", api.SaveDraftHandler(coord))
		pr.With(rbac.Require("attempt:submit")).
			Post("/tryouts/{tryoutID}/attempt/submit", api.SubmitAttemptHandler(coord))

		pr.With(rbac.Require("result:view-own")).
			Get("/tryouts/{tryoutID}/results", api.MyResultsHandler(store))
		pr.With(rbac.RequireAny("result:view-own", "explanation:view")).
			Get("/results/{resultID}/review", api.ResultReviewHandler(store, paySvc))

		pr.With(rbac.Require("ranking:view")).
			Get("/tryouts/{tryoutID}/ranking", api.RankingHandler(store))

		pr.With(rbac.Require("payment:create")).
			Post("/tryouts/{tryoutID}/payment", api.CreatePaymentHandler(paySvc, store, dbh, cfg.ExplanationPriceIDR))
		pr.With(rbac.Require("payment:status")).
			Get("/tryouts/{tryoutID}/payment", api.PaymentStatusHandler(paySvc))

		// Admin authoring
		pr.With(rbac.Require("tryout:create")).
			Post("/admin/tryouts", api.CreateTryoutHandler(store))
		pr.With(rbac.Require("tryout:update")).
			Put("/admin/tryouts/{tryoutID}", api.UpdateTryoutHandler(store))
		pr.With(rbac.Require("tryout:delete")).
			Delete("/admin/tryouts/{tryoutID}", api.DeleteTryoutHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/admin/tryouts/{tryoutID}/questions", api.AddQuestionHandler(store))
		pr.With(rbac.Require("question:view-keys")).
			Get("/admin/tryouts/{tryoutID}/questions", api.ListQuestionsAdminHandler(store))
		pr.With(rbac.Require("question:update")).
			Put("/admin/questions/{questionID}", api.UpdateQuestionHandler(store))
		pr.With(rbac.Require("question:delete")).
			Delete("/admin/questions/{questionID}", api.DeleteQuestionHandler(store))

		pr.With(rbac.Require("asset:upload")).
			Post("/admin/assets", api.UploadAssetHandler(bs))
		pr.With(rbac.Require("asset:delete")).
			Delete("/admin/assets/{key}", api.DeleteAssetHandler(bs))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "db": cfg.DBDriver}).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
