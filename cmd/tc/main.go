package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"timecard/internal/app"
	"timecard/internal/config"
	"timecard/internal/db"
	"timecard/internal/domain"
	"timecard/internal/engine"
	"timecard/internal/migrate"
	"timecard/internal/repo"
	"timecard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tc",
	Short: "Timecard CLI",
	Long: `Timecard tracks personal attendance as an append-only event log.
A day walks through go_work -> check_in -> [punch] -> check_out -> complete;
the accounting engine turns the log into a daily classification with
worked hours, overtime, and late/early-leave remarks. Manual overrides
(leave, sick, holiday, absent) live beside the computed status, never
in place of it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TIMECARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("day", "d", "", "day (YYYY-MM-DD, default today)")
	rootCmd.PersistentFlags().String("shift", "", "shift id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("day", rootCmd.PersistentFlags().Lookup("day"))
	_ = viper.BindPFlag("shift", rootCmd.PersistentFlags().Lookup("shift"))
}

func registerCommands() {
	rootCmd.AddCommand(actionCmd("go", "Record leaving for work", domain.ActionGoWork))
	rootCmd.AddCommand(actionCmd("in", "Record arrival at work", domain.ActionCheckIn))
	rootCmd.AddCommand(actionCmd("punch", "Record the mid-day punch", domain.ActionPunch))
	rootCmd.AddCommand(actionCmd("out", "Record leaving work", domain.ActionCheckOut))
	rootCmd.AddCommand(actionCmd("done", "Mark the day complete", domain.ActionComplete))
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(dayCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(overrideCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(shiftCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(serveCmd())
}

func actionCmd(use, short string, action domain.ActionType) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var ts time.Time
				if at != "" {
					parsed, err := parseWhen(e.Day(viper.GetString("day")), at)
					if err != nil {
						return err
					}
					ts = parsed
				}
				session, status, err := e.RecordAction(ctx, viper.GetString("day"), action, ts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"session": session, "status": status})
				}
				fmt.Printf("%s: %s\n", session.Day, session.Status)
				printStatusLine(status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "timestamp (RFC3339 or HH:mm, default now)")
	return cmd
}

func nextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the permitted next action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				step, err := e.NextAction(ctx, viper.GetString("day"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(step)
				}
				if !step.Allowed {
					fmt.Printf("%s: next %s (blocked: %s)\n", step.Day, step.Action, step.Reason)
					return nil
				}
				fmt.Printf("%s: next %s\n", step.Day, step.Action)
				return nil
			})
		},
	}
	return cmd
}

func dayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day [date]",
		Short: "Show one day's report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := viper.GetString("day")
			if len(args) == 1 {
				day = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.DayStatus(ctx, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				printWeekTable([]domain.DayReport{report})
				return nil
			})
		},
	}
	return cmd
}

func weekCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show a seven-day report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				week, err := e.WeekStatus(ctx, from)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(week)
				}
				printWeekTable(week)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD, default today)")
	return cmd
}

func overrideCmd() *cobra.Command {
	o := &cobra.Command{
		Use:   "override",
		Short: "Manage manual day overrides",
		Long:  "Overrides (leave, sick, holiday, absent) are set by hand and shown beside the computed status; they never replace it.",
	}
	o.AddCommand(overrideSetCmd())
	o.AddCommand(overrideClearCmd())
	return o
}

func overrideSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <leave|sick|holiday|absent>",
		Short: "Set a manual override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day := e.Day(viper.GetString("day"))
				if err := e.SetOverride(ctx, day, domain.OverrideStatus(args[0])); err != nil {
					return err
				}
				report, err := e.DayStatus(ctx, day)
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
	return cmd
}

func overrideClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a manual override",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day := e.Day(viper.GetString("day"))
				if err := e.ClearOverride(ctx, day); err != nil {
					return err
				}
				report, err := e.DayStatus(ctx, day)
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
	return cmd
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a day's events and start over",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				session, err := e.ResetDay(ctx, viper.GetString("day"))
				if err != nil {
					return err
				}
				return printJSONOrTable(session)
			})
		},
	}
	return cmd
}

func shiftCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "shift",
		Short: "Inspect shift configuration",
		Long:  "The shift sets start, office-end and latest-end wall clock times; end before start marks an overnight shift. Stored in DB, importable from timecard.yml.",
	}
	s.AddCommand(shiftShowCmd())
	s.AddCommand(shiftInitCmd())
	s.AddCommand(shiftImportCmd())
	s.AddCommand(shiftValidateCmd())
	return s
}

func shiftShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Shift)
			})
		},
	}
	return cmd
}

func shiftInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default timecard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			shiftID := viper.GetString("shift")
			if shiftID == "" {
				shiftID = "day"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(shiftID)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing file")
	return cmd
}

func shiftImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a shift from a YAML file into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertShiftConfig(ctx, cfg.ShiftConfig()); err != nil {
					return err
				}
				return printJSONOrTable(cfg.ShiftConfig())
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "timecard.yml", "config file to import")
	return cmd
}

func shiftValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Inspect the event log",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var actionType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, viper.GetString("day"), actionType)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&actionType, "type", "", "action type filter")
	return cmd
}

func backupCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export events, overrides and shifts to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				backup, err := e.Export(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(backup, "", "  ")
				if err != nil {
					return err
				}
				if file == "" || file == "-" {
					fmt.Println(string(data))
					return nil
				}
				if err := os.WriteFile(file, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %d events to %s\n", len(backup.Events), file)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "output file (default stdout)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Import a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var backup engine.Backup
			if err := json.Unmarshal(data, &backup); err != nil {
				return fmt.Errorf("invalid backup file: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Import(ctx, backup); err != nil {
					return err
				}
				fmt.Printf("imported %d events\n", len(backup.Events))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "backup file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveConfig(cmd.Context(), workspace, viper.GetString("shift"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("TIMECARD_JWT_SECRET")}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Timecard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if authCfg.JWTSecret == "" {
				fmt.Println("TIMECARD_JWT_SECRET not set; API is open, keep it on localhost")
			}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveConfig(ctx, workspace, viper.GetString("shift"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

// parseWhen accepts a full RFC3339 timestamp or a bare HH:mm taken as
// wall clock on the given day.
func parseWhen(day, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", day+" "+value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as RFC3339 or HH:mm", value)
}

func printStatusLine(status domain.DailyStatus) {
	line := fmt.Sprintf("status %s, %.2fh worked", status.Status, status.TotalWorkHours)
	if status.OvertimeHours > 0 {
		line += fmt.Sprintf(", %.2fh overtime", status.OvertimeHours)
	}
	if status.Remarks != "" {
		line += " (" + status.Remarks + ")"
	}
	fmt.Println(line)
}

func printWeekTable(days []domain.DayReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Day", "Status", "In", "Out", "Hours", "OT", "Override", "Remarks"})
	for _, d := range days {
		override := ""
		if d.Override != nil {
			override = string(*d.Override)
		}
		tw.AppendRow(table.Row{
			d.Day, d.Status, d.CheckInTime, d.CheckOutTime,
			fmt.Sprintf("%.2f", d.TotalWorkHours), fmt.Sprintf("%.2f", d.OvertimeHours),
			override, d.Remarks,
		})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
