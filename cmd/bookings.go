package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/db"
	"github.com/spf13/cobra"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect stored bookings (requires DATABASE_URL)",
	}
	cmd.AddCommand(newBookingsListCmd())
	return cmd
}

func newBookingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bookings in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set; in-memory bookings only live inside a running server")
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			all, err := bookings.NewPostgresStore(d).List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range all {
				fmt.Fprintf(out, "%s name=%s phone=%s date=%s time=%s guests=%s requests=%q call=%s created=%s\n",
					b.ID, show(b.Name), show(b.Phone), show(b.Date), show(b.Time), show(b.Guests),
					b.SpecialRequests, b.CallSID, b.CreatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "%d booking(s)\n", len(all))
			return nil
		},
	}
}

func show[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
