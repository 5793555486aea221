package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/identity"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lims-server",
		Short: "Laboratory specimen lifecycle API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the LIMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// withApp loads config, wires the services and runs fn as the system actor.
func withApp(name string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := auth.WithActor(context.Background(), auth.SystemActor(name))
	a, err := newApp(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// withMigrator only needs the database, so it skips service wiring.
func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewDirMigrator(pool, dir))
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the test catalog",
	}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load test definitions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			defs, err := catalog.LoadSeedFile(file)
			if err != nil {
				return err
			}
			return withApp("catalog-seed", func(ctx context.Context, a *app) error {
				report, err := a.catalog.Seed(ctx, defs)
				if err != nil {
					return err
				}
				fmt.Printf("Created %d test(s), skipped %d existing.\n", len(report.Created), len(report.Skipped))
				return nil
			})
		},
	}
	seedCmd.Flags().String("file", "catalog.yaml", "Path to the catalog seed file")
	cmd.AddCommand(seedCmd)
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail maintenance",
	}
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Archive audit entries in a time range to object storage as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			from, err := parseTimeFlag(fromFlag)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseTimeFlag(toFlag)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			return withApp("audit-export", func(ctx context.Context, a *app) error {
				res, err := a.audit.Export(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Printf("Exported %d entries (seq %d-%d) to %s\n", res.Count, res.FirstSeq, res.LastSeq, res.Key)
				return nil
			})
		},
	}
	exportCmd.Flags().String("from", "", "Start of range, RFC 3339 or YYYY-MM-DD (required)")
	exportCmd.Flags().String("to", "", "End of range, RFC 3339 or YYYY-MM-DD (defaults to now)")
	_ = exportCmd.MarkFlagRequired("from")
	cmd.AddCommand(exportCmd)
	return cmd
}

// parseTimeFlag accepts RFC 3339 or a bare date taken as UTC midnight. An
// empty value is the zero time.
func parseTimeFlag(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with any role, including super_admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in identity.RegisterInput
			in.Email, _ = cmd.Flags().GetString("email")
			in.Name, _ = cmd.Flags().GetString("name")
			in.Role, _ = cmd.Flags().GetString("role")
			in.Password = os.Getenv("LIMS_USER_PASSWORD")
			if in.Password == "" {
				return fmt.Errorf("set LIMS_USER_PASSWORD to the new user's password")
			}
			return withApp("user-create", func(ctx context.Context, a *app) error {
				u, err := a.identity.CreateUser(ctx, in)
				if err != nil {
					return err
				}
				fmt.Printf("Created user %s (%s) with role %s\n", u.Email, u.ID, u.Role)
				return nil
			})
		},
	}
	createCmd.Flags().String("email", "", "Login email (required)")
	createCmd.Flags().String("name", "", "Display name (required)")
	createCmd.Flags().String("role", auth.RoleLabTechnician, "Role")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("name")
	cmd.AddCommand(createCmd)
	return cmd
}
