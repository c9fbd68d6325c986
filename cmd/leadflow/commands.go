package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/api"
	"github.com/charlesng35/leadflow/internal/app"
	"github.com/charlesng35/leadflow/internal/auditctx"
	"github.com/charlesng35/leadflow/internal/auth/mfa"
	"github.com/charlesng35/leadflow/internal/pipeline"
	"github.com/charlesng35/leadflow/internal/security"
	"github.com/charlesng35/leadflow/pkg/crypto"
	"github.com/charlesng35/leadflow/pkg/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed the stage catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(opts, func(*app.Config, *gorm.DB) error {
				fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
				return nil
			})
		},
	}
}

func newStagesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Inspect and seed pipeline stages",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stages in board order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(opts, func(_ *app.Config, svc *api.Services) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ORDER\tID\tNAME\tSTATUS\tCOLOR")
				for _, stage := range svc.Stages.ListStages(cmd.Context()) {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", stage.OrderIndex, stage.ID, stage.Name, stage.Status, stage.Color)
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert configured stages that do not exist yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(opts, func(cfg *app.Config, svc *api.Services) error {
				stages := cfg.Pipeline.StageDefinitions()
				if err := svc.Stages.SeedStages(cmd.Context(), stages); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d stages ensured\n", len(stages))
				return nil
			})
		},
	})

	return cmd
}

func newPipelineCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show the board or move a lead between stages",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every stage with its leads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBoard(cmd.Context(), opts, func(board *pipeline.Board) error {
				printBoard(cmd.OutOrStdout(), board.View())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <lead-id> <stage-id>",
		Short: "Move a lead to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			moved := false
			report := pipeline.WithObserver(func(_ context.Context, move pipeline.Move) {
				moved = true
				fmt.Fprintf(out, "moved %s to stage %s (status %s -> %s)\n",
					move.Lead.Name, move.ToStage, move.FromStatus, move.Lead.Status)
			})
			return withBoard(cmd.Context(), opts, func(board *pipeline.Board) error {
				ctx := auditctx.WithActor(cmd.Context(), auditctx.Actor{Email: "cli"})
				lead, err := board.Move(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !moved {
					fmt.Fprintf(out, "%s is already in stage %s\n", lead.Name, args[1])
				}
				return nil
			}, report)
		},
	})

	return cmd
}

func newAdminCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Generate admin credentials and audit the deployment",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "audit",
		Short: "Check authentication and exposure settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(opts, func(cfg *app.Config, db *gorm.DB) error {
				result := security.NewAuditService(db, cfg).Run(cmd.Context())
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "STATUS\tCHECK\tMESSAGE")
				for _, check := range result.Checks {
					fmt.Fprintf(w, "%s\t%s\t%s\n", check.Status, check.ID, check.Message)
					if check.Remediation != "" && check.Status != security.StatusPass {
						fmt.Fprintf(w, "\t\t-> %s\n", check.Remediation)
					}
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if result.Failed() {
					return errors.New("security audit reported failures")
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash for admin.password_hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArgument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			hash, err := crypto.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	var (
		issuer string
		qrPath string
	)
	totpCmd := &cobra.Command{
		Use:   "totp <account>",
		Short: "Provision a TOTP secret for admin.totp_secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enrollment, err := mfa.Generate(issuer, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "secret: %s\nurl:    %s\n", enrollment.Secret, enrollment.URL)

			if qrPath != "" {
				png, err := enrollment.QRCode(0)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrPath, png, 0o600); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
				fmt.Fprintf(out, "qr code written to %s\n", qrPath)
				return nil
			}

			code, err := enrollment.TerminalQRCode()
			if err != nil {
				return err
			}
			fmt.Fprint(out, code)
			return nil
		},
	}
	totpCmd.Flags().StringVar(&issuer, "issuer", mfa.DefaultIssuer, "Issuer shown by authenticator apps")
	totpCmd.Flags().StringVar(&qrPath, "qr", "", "Write the provisioning QR code to this PNG file")
	cmd.AddCommand(totpCmd)

	return cmd
}

func withDatabase(opts *rootOptions, fn func(cfg *app.Config, db *gorm.DB) error) error {
	cfg, log, err := prepareConfig(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() // best effort

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	return fn(cfg, db)
}

// withServices builds the domain services without live delivery or external sinks.
func withServices(opts *rootOptions, fn func(cfg *app.Config, svc *api.Services) error) error {
	return withDatabase(opts, func(cfg *app.Config, db *gorm.DB) error {
		svc, err := api.NewServices(db, api.ServiceConfig{})
		if err != nil {
			return err
		}
		return fn(cfg, svc)
	})
}

func withBoard(ctx context.Context, opts *rootOptions, fn func(board *pipeline.Board) error, boardOpts ...pipeline.Option) error {
	return withServices(opts, func(_ *app.Config, svc *api.Services) error {
		board, err := pipeline.NewBoard(svc.Board(), boardOpts...)
		if err != nil {
			return err
		}
		if _, err := board.Load(ctx); err != nil {
			return err
		}
		return fn(board)
	})
}

func printBoard(out io.Writer, view pipeline.View) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, column := range view.Columns {
		fmt.Fprintf(w, "%s [%s]\t%d leads\t%.2f\n", column.Stage.Name, column.Stage.ID, column.Count, column.TotalValue)
		for _, lead := range column.Leads {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", lead.ID, lead.Name, lead.Email)
		}
	}
	if len(view.Unassigned) > 0 {
		fmt.Fprintf(w, "Unassigned\t%d leads\t\n", len(view.Unassigned))
		for _, lead := range view.Unassigned {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", lead.ID, lead.Name, lead.Email)
		}
	}
	fmt.Fprintf(w, "Total\t%d leads\t%.2f\n", view.TotalLeads, view.TotalValue)
	_ = w.Flush()
}

func passwordArgument(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
