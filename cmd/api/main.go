package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	httpadp "microcredit-backend/internal/adapter/http"
	"microcredit-backend/internal/adapter/middleware"
	"microcredit-backend/internal/adapter/repository/mysql"
	"microcredit-backend/internal/config"
	"microcredit-backend/internal/infrastructure/auditlog"
	"microcredit-backend/internal/infrastructure/cache"
	"microcredit-backend/internal/infrastructure/db"
	"microcredit-backend/internal/infrastructure/notify"
	"microcredit-backend/internal/infrastructure/storage"
	ledgerUC "microcredit-backend/internal/usecase/ledger"
	requestUC "microcredit-backend/internal/usecase/request"
	restrictionUC "microcredit-backend/internal/usecase/restriction"
	scoringUC "microcredit-backend/internal/usecase/scoring"
	shortcreditUC "microcredit-backend/internal/usecase/shortcredit"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.WithError(err).Fatal("mysql connect failed")
	}
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("redis connect failed")
	}

	store, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("upload dir init failed")
	}

	sink, err := auditlog.NewGormSink(gdb, log)
	if err != nil {
		log.WithError(err).Fatal("audit table init failed")
	}

	notifier := notify.NewEmailNotifier(notify.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUser,
		Password:  cfg.SMTPPass,
		Sender:    cfg.SenderEmail,
		Reviewers: cfg.ReviewerEmails,
	}, log)

	// repositories
	profiles := mysql.NewProfileRepository(gdb)
	requests := mysql.NewRequestRepository(gdb)
	history := mysql.NewHistoryRepository(gdb)
	documents := mysql.NewDocumentRepository(gdb)
	credits := mysql.NewCreditRepository(gdb)
	payments := mysql.NewPaymentRepository(gdb)
	restrictions := mysql.NewRestrictionRepository(gdb)
	scores := mysql.NewScoringRepository(gdb)
	uow := mysql.NewGormUoW(gdb)

	// usecases
	limits := restrictionUC.DefaultLimits()
	scoring := scoringUC.NewService(profiles, scores, sink, log)
	restriction := restrictionUC.NewUsecase(profiles, credits, restrictions, limits, log)
	ledger := ledgerUC.NewUsecase(uow, limits, sink, log).WithRescorer(scoring)
	issuer := shortcreditUC.NewUsecase(uow, ledger, limits, sink, log)
	lifecycle := requestUC.NewUsecase(uow, requests, history, documents, store, ledger, limits, notifier, sink, log)

	// handlers
	h := httpadp.NewHandler()
	profileH := httpadp.NewProfileHandler(profiles, scoring, log)
	scoringH := httpadp.NewScoringHandler(scoring, restriction, log)
	requestH := httpadp.NewRequestHandler(lifecycle, log)
	creditH := httpadp.NewCreditHandler(credits, payments, ledger, issuer, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())
	e.Validator = httpadp.NewValidator()

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log)

	e.GET("/health", h.Health)

	// profiles and scoring
	e.PUT("/users/:user_id/profile", profileH.UpsertProfile)
	e.GET("/users/:user_id/profile", profileH.GetProfile)
	e.POST("/users/:user_id/score", scoringH.Recalculate)
	e.GET("/users/:user_id/score", scoringH.LatestScore)
	e.GET("/users/:user_id/score/history", scoringH.ScoreHistory)
	e.GET("/users/:user_id/restrictions", scoringH.Restrictions)

	// long-form requests
	e.POST("/requests", requestH.Create, idemp)
	e.GET("/requests/:request_id", requestH.Get)
	e.PATCH("/requests/:request_id", requestH.Update)
	e.DELETE("/requests/:request_id", requestH.Delete)
	e.GET("/users/:user_id/requests", requestH.ListByUser)
	e.GET("/users/:user_id/requests/stats", requestH.Stats)
	e.PUT("/users/:user_id/draft", requestH.SaveDraft)
	e.GET("/users/:user_id/draft", requestH.GetDraft)
	e.DELETE("/users/:user_id/draft", requestH.DeleteDraft)
	e.POST("/requests/:request_id/submit", requestH.Submit, idemp)
	e.POST("/requests/:request_id/claim", requestH.Claim)
	e.POST("/requests/:request_id/require-info", requestH.RequireInfo)
	e.POST("/requests/:request_id/decision", requestH.Decide)
	e.POST("/requests/:request_id/disburse", requestH.Disburse, idemp)
	e.POST("/requests/:request_id/cancel", requestH.Cancel)
	e.POST("/requests/:request_id/comments", requestH.AddComment)
	e.POST("/requests/:request_id/documents", requestH.UploadDocument)
	e.GET("/requests/:request_id/documents", requestH.ListDocuments)
	e.DELETE("/requests/:request_id/documents/:document_id", requestH.DeleteDocument)
	e.GET("/requests/:request_id/history", requestH.History)

	// ledger
	e.POST("/credits", creditH.Issue, idemp)
	e.GET("/credits/:credit_id", creditH.Get)
	e.GET("/users/:user_id/credits", creditH.ListByUser)
	e.POST("/credits/:credit_id/payments", creditH.Pay, idemp)
	e.GET("/credits/:credit_id/payments", creditH.Payments)

	// nightly overdue sweep
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.OverdueCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := ledger.MarkOverdue(ctx)
		if err != nil {
			log.WithError(err).Error("overdue sweep failed")
			return
		}
		log.WithField("flipped", n).Info("overdue sweep done")
	}); err != nil {
		log.WithError(err).Fatal("invalid OVERDUE_CRON_SPEC")
	}
	sched.Start()
	defer sched.Stop()

	addr := ":" + cfg.AppPort
	log.WithField("addr", addr).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
