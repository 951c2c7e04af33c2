package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/spoon-voicebot/internal/auth"
	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/bot"
	"github.com/example/spoon-voicebot/internal/cartesia"
	"github.com/example/spoon-voicebot/internal/db"
	"github.com/example/spoon-voicebot/internal/llm"
	"github.com/example/spoon-voicebot/internal/logging"
	"github.com/example/spoon-voicebot/internal/migrate"
	"github.com/example/spoon-voicebot/internal/soniox"
	"github.com/example/spoon-voicebot/internal/twilio"
	"github.com/example/spoon-voicebot/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the dial-out API, TwiML callback and media stream endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(logging.Config{Debug: cfg.LogDebug, Pretty: cfg.LogPretty})

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var store bookings.Store = bookings.NewMemoryStore()
			if cfg.DatabaseURL != "" {
				d, err := db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()

				if err := d.Ping(ctx); err != nil {
					return fmt.Errorf("db ping: %w", err)
				}
				if migrateUp {
					if err := migrate.Up(ctx, d); err != nil {
						return err
					}
				}
				store = bookings.NewPostgresStore(d)
				log.Info().Msg("bookings stored in postgres")
			} else {
				log.Info().Msg("bookings kept in memory")
			}

			chat, err := llm.New(ctx, llm.Config{
				BaseURL: cfg.GoogleBaseURL,
				APIKey:  cfg.GoogleAPIKey,
				Model:   cfg.GoogleModel,
			})
			if err != nil {
				return err
			}

			twilioClient := twilio.New(twilio.Credentials{AccountSID: cfg.TwilioAccountSID, AuthToken: cfg.TwilioAuthToken})

			b := &bot.Bot{
				Store:  store,
				Model:  chat,
				STT:    bot.SonioxTranscriber{Client: soniox.New(cfg.SonioxAPIKey, cfg.SonioxModel)},
				TTS:    cartesia.New(cfg.CartesiaAPIKey, cfg.CartesiaVoiceID, cfg.CartesiaModel),
				Hangup: twilioClient.HangUp,
			}

			ws := &web.Server{
				Calls:      b,
				Dialer:     twilioClient,
				Bookings:   store,
				Admin:      auth.Admin{User: cfg.AdminUser, PasswordHash: cfg.AdminPasswordBcrypt},
				PublicHost: cfg.PublicHost,
			}
			if cfg.StreamSigningEnabled() {
				tokens := auth.NewStreamTokens(cfg.StreamHashKey, cfg.StreamBlockKey)
				ws.Tokens = tokens
				b.Tokens = tokens
			}

			return web.Start(ctx, cfg.ListenAddr(), ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (when DATABASE_URL is set)")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
