package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/client/api"
)

func newTokenCommand(r *Root) *cobra.Command {
	var refresh, logout bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain (or drop) the relay access token of the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if logout || refresh {
				if err := app.auth.Logout(ctx, app.user.ID); err != nil {
					return err
				}
				if logout {
					app.io.Println("Cached token removed")
					return nil
				}
			}

			token, err := app.auth.Token(ctx, app.user.ID)
			if err != nil {
				return err
			}
			if token == "" {
				app.io.Println("Server does not require tokens")
				return nil
			}
			app.io.Println(token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "request a new token even if a cached one is valid")
	cmd.Flags().BoolVar(&logout, "logout", false, "remove the cached token")
	return cmd
}

func newStatusCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show relay health and its rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client := api.NewClient(app.cfg.ServerURL, api.WithToken(app.token(ctx)))

			health, err := client.Health(ctx)
			if err != nil {
				return err
			}
			app.io.Printf("Server %s: %s (version %s), %d rooms, %d clients\n",
				app.cfg.ServerURL, health.Status, health.Version, health.Rooms, health.Clients)

			rooms, err := client.ListRooms(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rooms: %w", err)
			}
			for _, room := range rooms {
				saved := "never saved"
				if room.Persisted {
					saved = "saved " + room.UpdatedAt.Local().Format("2006-01-02 15:04:05")
				}
				app.io.Printf("  %-40s %3d online  %6d bytes  %s\n", room.Room, room.Clients, room.Size, saved)
			}
			return nil
		},
	}
}
