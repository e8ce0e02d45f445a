package main

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hsu0403/hcast-backend/internal/app/podcasts"
	"github.com/hsu0403/hcast-backend/internal/app/reviews"
	"github.com/hsu0403/hcast-backend/internal/app/users"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/config"
	"github.com/hsu0403/hcast-backend/internal/http/middleware"
	"github.com/hsu0403/hcast-backend/internal/httpapi"
	"github.com/hsu0403/hcast-backend/internal/mailer"
	"github.com/hsu0403/hcast-backend/internal/store"
)

func newHTTPHandler(cfg *config.Config, dataStore *store.Store, mail *mailer.Dispatcher) (http.Handler, error) {
	formula, err := reviews.FormulaByName(cfg.RatingFormula)
	if err != nil {
		return nil, fmt.Errorf("rating formula: %w", err)
	}

	tokens := auth.NewTokens(cfg.Security.JWTSecret)

	userSvc := users.New(dataStore, tokens, mail)
	podcastSvc := podcasts.New(dataStore)
	reviewSvc := reviews.New(dataStore, formula)

	api := httpapi.New(userSvc, podcastSvc, reviewSvc, dataStore)

	return middleware.Chain(api.Routes(),
		middleware.RequestLogging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		auth.Middleware(tokens, dataStore),
	), nil
}

func newMailSender(cfg config.MailConfig) mailer.Sender {
	if !cfg.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, outgoing mail is discarded")
		return mailer.Discard{}
	}
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("SMTP mailer configured")
	return mailer.NewSMTP(cfg)
}
