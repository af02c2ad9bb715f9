package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qwmll19-cmd/ai-lotto/internal/client"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

type app struct {
	apiURL      string
	sessionPath string
	verbose     bool
	asJSON      bool

	out    io.Writer
	log    *zap.Logger
	client *client.Client
}

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lottoctl",
		Short:         "Command line client for the ai-lotto API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.apiURL, "api", envOr("AI_LOTTO_API", "http://localhost:8080"), "API base URL")
	f.StringVar(&a.sessionPath, "session", os.Getenv("AI_LOTTO_SESSION"), "session file (default is the user config dir)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and token refreshes")
	f.BoolVar(&a.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.meCmd(),
		a.latestCmd(),
		a.drawCmd(),
		a.plansCmd(),
		a.checkCmd(),
		a.statusCmd(),
		a.revealCmd(),
		a.linesCmd(),
		a.performanceCmd(),
		a.historyCmd(),
		a.statsCmd(),
		a.freeCmd(),
		a.guestCmd(),
		a.dashboardCmd(),
		a.logsCmd(),
		a.adminCmd(),
	)
	return root
}

func (a *app) setup() error {
	level := zapcore.WarnLevel
	if a.verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.log = log

	path := a.sessionPath
	if path == "" {
		if path, err = client.DefaultPath(); err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
	}
	store, err := client.OpenFileStore(path)
	if err != nil {
		return err
	}
	a.client = client.New(a.apiURL, store, client.WithLogger(log))
	return nil
}

func (a *app) print(v any, human func(w io.Writer)) error {
	if a.asJSON || human == nil {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(a.out)
	return nil
}

func printProfile(w io.Writer, p *client.Profile) {
	admin := ""
	if p.IsAdmin {
		admin = " (admin)"
	}
	fmt.Fprintf(w, "%s%s  tier=%s  id=%s\n", p.Identifier, admin, p.Tier, p.UserID)
}

func printLines(w io.Writer, lines [][]int) {
	for i, l := range lines {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, lotto.FormatLine(l))
	}
}

func printDraw(w io.Writer, d *client.Draw) {
	if d.DrawNo == nil {
		fmt.Fprintln(w, "no draws recorded yet")
		return
	}
	date := ""
	if d.DrawDate != nil {
		date = d.DrawDate.Format("2006-01-02")
	}
	fmt.Fprintf(w, "draw %d (%s): %s + bonus %d\n", *d.DrawNo, date, lotto.FormatLine(d.Numbers), *d.Bonus)
}

func printSummary(w io.Writer, s lotto.Summary) {
	for i, l := range s.Lines {
		rank := "-"
		if l.Rank != nil {
			rank = fmt.Sprintf("rank %d", *l.Rank)
		}
		bonus := ""
		if l.BonusMatch {
			bonus = " +bonus"
		}
		fmt.Fprintf(w, "  %2d. %-24s %d matched%s  %s\n", i+1, lotto.FormatLine(l.Numbers), l.MatchCount, bonus, rank)
	}
	if s.BestRank != nil {
		fmt.Fprintf(w, "best rank: %d\n", *s.BestRank)
	}
	fmt.Fprintf(w, "average match: %.2f\n", s.AvgMatchCount)
}

func parseNumberList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return lotto.ParseNumbers(s)
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
