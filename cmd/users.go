package main

import (
	"context"
	"time"

	"github.com/gangwalrachit/SpotiSpy/internal/repositories"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
	"github.com/urfave/cli/v3"
)

func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List stored identities (diagnostic)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Users,
	}
}

// userSummary is the diagnostic listing shape. Token material is reduced to
// timestamps so the command never prints secrets.
type userSummary struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Users enumerates every identity in the store.
func (r *Runner) Users(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	identities, err := repositories.NewIdentityRepository(db).List(ctx)
	if err != nil {
		return err
	}

	summaries := make([]userSummary, 0, len(identities))
	for _, identity := range identities {
		summaries = append(summaries, userSummary{
			ID:          identity.ID,
			DisplayName: identity.ProfileInfo.Name(),
			TokenExpiry: identity.TokenInfo.Expiry,
			CreatedAt:   identity.CreatedAt,
			UpdatedAt:   identity.UpdatedAt,
		})
	}

	r.logger.Info("identities in store", "count", len(summaries))
	return r.writeJSON(summaries, cmd.Bool("pretty"))
}
