package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voter-outreach/common/database"
	"voter-outreach/internal/config"
	"voter-outreach/internal/domain"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/repository"
	"voter-outreach/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// MigrateCmd applies the schema; safe to run repeatedly.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.NewPostgresDB(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)

			if err := repository.ApplySchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date (%s@%s/%s)\n", okMark,
				cfg.Database.User, cfg.Database.Host, cfg.Database.Database)
			return nil
		},
	}
}

// PreviewCmd shows headers and samples without touching the database.
func PreviewCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "preview <file.xlsx>",
		Short: "Show the columns of a voter roll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := service.NewImportService(nil, nil, nil, rows, nil)
			p, err := svc.PreviewFile(filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			printPreview(cmd.OutOrStdout(), filepath.Base(args[0]), p)
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", ingest.DefaultPreviewRows, "sample rows per column")
	return cmd
}

// ImportCmd loads a roll straight into the database.
func ImportCmd() *cobra.Command {
	var (
		maps       []string
		template   bool
		importedBy string
	)
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a voter roll",
		Long: `Import a voter roll into the database.

Columns are chosen with --map field=column, where column is a header name or a
0-based index, e.g.

  outreachctl import roll.xlsx --map state=State --map lga=LGA --map ward=Ward \
    --map pollingUnit="Polling Unit" --map phoneNumber=4

Use --template for files built from the import template.
Re-importing the same file inserts nothing new.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := parseMapping(maps)
			if err != nil {
				return err
			}
			if template {
				for f, ref := range ingest.TemplateMapping() {
					if _, ok := mapping[f]; !ok {
						mapping[f] = ref
					}
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.imports.ImportFile(cmd.Context(), filepath.Base(args[0]), f, mapping, importedBy)
			if res != nil {
				printImportResult(cmd.OutOrStdout(), res)
			}
			return explain(err)
		},
	}
	cmd.Flags().StringArrayVarP(&maps, "map", "m", nil, "field=column (repeatable)")
	cmd.Flags().BoolVar(&template, "template", false, "use the import template's header names")
	cmd.Flags().StringVar(&importedBy, "by", currentUser(), "importing user id")
	return cmd
}

// AssignCmd binds a caller to a polling unit, displacing current holders.
func AssignCmd() *cobra.Command {
	var (
		t          domain.Territory
		assignedBy string
	)
	cmd := &cobra.Command{
		Use:   "assign <user-id>",
		Short: "Assign a caller to a polling unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.assignments.Assign(cmd.Context(), service.AssignRequest{
				UserID:     args[0],
				Territory:  t,
				AssignedBy: assignedBy,
			})
			if err != nil {
				return explain(err)
			}
			printAssignment(cmd.OutOrStdout(), resp.Assignment, resp.VoterCount)
			printDisplaced(cmd.OutOrStdout(), resp.Displaced)
			return nil
		},
	}
	cmd.Flags().StringVar(&t.State, "state", "", "state (required)")
	cmd.Flags().StringVar(&t.LGA, "lga", "", "local government area (required)")
	cmd.Flags().StringVar(&t.Ward, "ward", "", "ward (required)")
	cmd.Flags().StringVar(&t.PollingUnit, "pu", "", "polling unit (required)")
	cmd.Flags().StringVar(&t.PollingUnitCode, "pu-code", "", "polling unit code")
	cmd.Flags().StringVar(&assignedBy, "by", currentUser(), "assigning admin id")
	for _, f := range []string{"state", "lga", "ward", "pu"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func RevokeCmd() *cobra.Command {
	var revokedBy string
	cmd := &cobra.Command{
		Use:   "revoke <user-id>",
		Short: "Deactivate a caller's assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prev, err := a.assignments.Revoke(cmd.Context(), args[0], revokedBy)
			if err != nil {
				return explain(err)
			}
			if prev == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s has no active assignment\n", warnMark, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s released %s\n", okMark, args[0], prev.PollingUnit)
			return nil
		},
	}
	cmd.Flags().StringVar(&revokedBy, "by", currentUser(), "revoking admin id")
	return cmd
}

func VolunteersCmd() *cobra.Command {
	var req service.ListVolunteersRequest
	cmd := &cobra.Command{
		Use:   "volunteers",
		Short: "List callers with their progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.assignments.ListVolunteers(cmd.Context(), req)
			if err != nil {
				return explain(err)
			}
			printVolunteers(cmd.OutOrStdout(), resp.Items, resp.Total)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&req.IncludeInactive, "all", "a", false, "include inactive assignments")
	cmd.Flags().StringVar(&req.State, "state", "", "filter by state")
	cmd.Flags().StringVar(&req.LGA, "lga", "", "filter by LGA")
	cmd.Flags().IntVar(&req.Page, "page", 1, "page")
	cmd.Flags().IntVar(&req.Size, "page-size", 100, "page size")
	return cmd
}

// ExportCmd writes the call sheet for one polling unit.
func ExportCmd() *cobra.Command {
	var (
		t   domain.Territory
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a polling unit's call sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.territories.ExportCallSheet(cmd.Context(), t)
			if err != nil {
				return explain(err)
			}
			if out == "" {
				out = "call_sheet_" + strings.ReplaceAll(domain.CollapseSpace(t.PollingUnit), " ", "_") + ".xlsx"
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", okMark, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&t.State, "state", "", "state (required)")
	cmd.Flags().StringVar(&t.LGA, "lga", "", "local government area (required)")
	cmd.Flags().StringVar(&t.Ward, "ward", "", "ward (required)")
	cmd.Flags().StringVar(&t.PollingUnit, "pu", "", "polling unit (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	for _, f := range []string{"state", "lga", "ward", "pu"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// parseMapping turns field=column pairs into a mapping. Column is an index
// when it parses as an integer, a header name otherwise.
func parseMapping(pairs []string) (ingest.ColumnMapping, error) {
	m := ingest.ColumnMapping{}
	for _, p := range pairs {
		field, col, ok := strings.Cut(p, "=")
		field, col = strings.TrimSpace(field), strings.TrimSpace(col)
		if !ok || field == "" || col == "" {
			return nil, fmt.Errorf("invalid --map %q, want field=column", p)
		}
		m[ingest.Field(field)] = ingest.ParseColumnRef(col)
	}
	return m, nil
}

// explain adds a hint for the errors an operator can fix.
func explain(err error) error {
	var missing *domain.MissingMappingError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &missing):
		hints := make([]string, len(missing.Fields))
		for i, f := range missing.Fields {
			hints[i] = "--map " + f + "=<column>"
		}
		return fmt.Errorf("%w\n  add %s", err, color.New(color.FgCyan).Sprint(strings.Join(hints, " ")))
	case domain.IsStructural(err):
		return fmt.Errorf("%w\n  run `outreachctl preview` to see the columns", err)
	}
	return err
}

func currentUser() string {
	if u := os.Getenv("OUTREACH_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "outreachctl"
}
