package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/config"
	"github.com/alecgard/troupe/internal/ordering"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed an admin, demo dancers and a demo team",
	RunE:  runSeed,
}

var (
	seedAdminEmail    string
	seedAdminPassword string
)

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@troupe.local", "email of the seeded admin account")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password of the seeded admin account (required)")
	rootCmd.AddCommand(seedCmd)
}

var demoDancers = []account.CreateAccountInput{
	{Email: "hana@troupe.local", Name: "Hana", Type: account.RoleDancer},
	{Email: "jun@troupe.local", Name: "Jun", Type: account.RoleDancer},
	{Email: "sora@troupe.local", Name: "Sora", Type: account.RoleDancer},
}

func runSeed(cmd *cobra.Command, args []string) error {
	if len(seedAdminPassword) < 8 {
		return errors.New("--admin-password must be at least 8 characters")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	accounts := account.NewStore(pool, cfg.Auth.SessionTTL)
	teams := team.NewStore(pool)

	// Check if seed has already run.
	if _, err := accounts.GetByEmail(ctx, seedAdminEmail); err == nil {
		slog.Info("admin already exists, skipping seed", "email", seedAdminEmail)
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("checking existing admin: %w", err)
	}

	admin, err := accounts.Create(ctx, account.CreateAccountInput{
		Email:    seedAdminEmail,
		Password: seedAdminPassword,
		Name:     "Admin",
		Type:     account.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	slog.Info("created admin", "id", admin.ID, "email", admin.Email)

	var dancers []*account.Account
	for _, in := range demoDancers {
		in.Password = seedAdminPassword
		d, err := accounts.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating dancer %q: %w", in.Name, err)
		}
		slog.Info("created dancer", "name", d.Name, "id", d.ID)
		dancers = append(dancers, d)
	}

	leader := dancers[0].ID
	crew, err := teams.Create(ctx, team.CreateTeamInput{
		Name:         "Demo Crew",
		NameEN:       "Demo Crew",
		LeaderID:     &leader,
		Introduction: "A demo team seeded for local development.",
	})
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	for i, d := range dancers {
		role := team.RoleMember
		if i == 0 {
			role = team.RoleLeader
		}
		if _, err := teams.AddMember(ctx, crew.ID, d.ID, role); err != nil {
			return fmt.Errorf("adding %q to team: %w", d.Name, err)
		}
	}
	slog.Info("created team", "name", crew.Name, "id", crew.ID, "members", len(dancers))

	orders := ordering.NewService(ordering.NewStore(pool), accounts, teams, slog.Default())
	if _, err := orders.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("initializing display order: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Admin:   %s\n", admin.Email)
	fmt.Printf("Dancers: %d (same password as the admin)\n", len(dancers))
	fmt.Printf("Team:    %s (%s)\n", crew.Name, crew.ID)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl http://localhost:%d/api/v1/display-order\n", cfg.Server.Port)
	return nil
}
