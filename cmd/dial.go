package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/spoon-voicebot/internal/twilio"
	"github.com/spf13/cobra"
)

func newDialCmd() *cobra.Command {
	var to, from, twimlURL string

	c := &cobra.Command{
		Use:   "dial",
		Short: "Place an outbound call directly through Twilio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			creds := twilio.Credentials{AccountSID: cfg.TwilioAccountSID, AuthToken: cfg.TwilioAuthToken}
			if !creds.Valid() {
				return errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
			}
			if twimlURL == "" {
				if cfg.PublicHost == "" {
					return errors.New("set --url or PUBLIC_HOST")
				}
				twimlURL = "https://" + strings.TrimSuffix(cfg.PublicHost, "/") + "/twiml"
			}

			call, err := twilio.New(creds).CreateCall(context.Background(), twilio.CallParams{
				To:   to,
				From: from,
				URL:  twimlURL,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "call_sid=%s status=%s to=%s\n", call.SID, call.Status, to)
			return nil
		},
	}

	c.Flags().StringVar(&to, "to", "", "number to call (E.164)")
	c.Flags().StringVar(&from, "from", "", "caller id (E.164)")
	c.Flags().StringVar(&twimlURL, "url", "", "TwiML callback URL (defaults to https://$PUBLIC_HOST/twiml)")
	_ = c.MarkFlagRequired("to")
	_ = c.MarkFlagRequired("from")
	return c
}
