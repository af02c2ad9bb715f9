package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/client"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/poolview"
)

func passwordFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "password", "p", "", "password (or AI_LOTTO_PASSWORD)")
}

func password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("AI_LOTTO_PASSWORD"); v != "" {
		return v, nil
	}
	return "", errors.New("password is required: pass --password or set AI_LOTTO_PASSWORD")
}

func (a *app) signupCmd() *cobra.Command {
	var pw, name, phone string
	cmd := &cobra.Command{
		Use:   "signup <identifier>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := password(pw)
			if err != nil {
				return err
			}
			var namePtr, phonePtr *string
			if name != "" {
				namePtr = &name
			}
			if phone != "" {
				phonePtr = &phone
			}
			p, err := a.client.Signup(cmd.Context(), args[0], secret, namePtr, phonePtr)
			if err != nil {
				return err
			}
			return a.print(p, func(w io.Writer) { printProfile(w, p) })
		},
	}
	passwordFlag(cmd, &pw)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var pw string
	cmd := &cobra.Command{
		Use:   "login <identifier>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := password(pw)
			if err != nil {
				return err
			}
			p, err := a.client.Login(cmd.Context(), args[0], secret)
			if err != nil {
				return err
			}
			return a.print(p, func(w io.Writer) { printProfile(w, p) })
		},
	}
	passwordFlag(cmd, &pw)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget local tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}
}

func (a *app) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.client.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintln(a.out, "not signed in")
				return nil
			}
			return a.print(p, func(w io.Writer) { printProfile(w, p) })
		},
	}
}

func (a *app) latestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.client.Latest(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(d, func(w io.Writer) { printDraw(w, d) })
		},
	}
}

func (a *app) drawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draw <draw-no>",
		Short: "Show one draw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			no, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("draw number: %w", err)
			}
			d, err := a.client.Draw(cmd.Context(), no)
			if err != nil {
				return err
			}
			return a.print(d, func(w io.Writer) { printDraw(w, d) })
		},
	}
}

func (a *app) plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plans, err := a.client.Plans(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(plans, func(w io.Writer) {
				for _, p := range plans {
					fmt.Fprintf(w, "%-8s %2d lines  %6d KRW\n", p.Tier, p.Lines, p.Price)
				}
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	var drawNo int
	cmd := &cobra.Command{
		Use:   `check "<n,n,n,n,n,n>" ...`,
		Short: "Check lines against a draw",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([][]int, 0, len(args))
			for _, arg := range args {
				nums, err := lotto.ParseNumbers(arg)
				if err != nil {
					return err
				}
				if err := lotto.ValidateLine(nums); err != nil {
					return fmt.Errorf("%q: %w", arg, err)
				}
				lines = append(lines, nums)
			}
			res, err := a.client.Match(cmd.Context(), drawNo, lines)
			if err != nil {
				return err
			}
			return a.print(res, func(w io.Writer) {
				fmt.Fprintf(w, "draw %d: %s + bonus %d\n", res.DrawNo, lotto.FormatLine(res.WinningNumbers), res.Bonus)
				printSummary(w, res.Summary)
			})
		},
	}
	cmd.Flags().IntVar(&drawNo, "draw", 0, "draw number (default latest)")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this week's recommendation pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.client.PoolStatus(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(st, func(w io.Writer) {
				fmt.Fprintf(w, "draw %d  plan %s  %s  %d/%d revealed\n",
					st.TargetDrawNo, st.PlanType, st.State(), st.RevealedCount, st.PoolTotal)
				printLines(w, st.RevealedLines)
			})
		},
	}
}

func (a *app) revealCmd() *cobra.Command {
	var all bool
	var exclude, fixed string
	cmd := &cobra.Command{
		Use:   "reveal",
		Short: "Reveal the next recommended line, or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tier := lotto.TierFree
			if p, ok := a.client.Session().Profile(); ok {
				tier = p.Tier
			}
			view := poolview.New(a.client, tier, a.log)
			defer view.Close()
			if err := view.Load(ctx); err != nil {
				return err
			}

			ex, err := parseNumberList(exclude)
			if err != nil {
				return fmt.Errorf("--exclude: %w", err)
			}
			fx, err := parseNumberList(fixed)
			if err != nil {
				return fmt.Errorf("--fixed: %w", err)
			}
			if err := applySettings(view, ex, fx); err != nil {
				return err
			}
			if view.Dirty() {
				a.log.Debug("sending new settings", zap.Any("diff", view.Diff()))
			}

			if all {
				lines, already, err := view.RequestAll(ctx)
				if err != nil {
					return err
				}
				return a.print(view.Status(), func(w io.Writer) {
					if already {
						fmt.Fprintln(w, "every line was already revealed")
					}
					printLines(w, lines)
				})
			}

			line, err := view.RequestOne(ctx)
			if errors.Is(err, poolview.ErrComplete) {
				return errors.New("every line is already revealed, use --all to list them")
			}
			if err != nil {
				return err
			}
			st := view.Status()
			return a.print(st, func(w io.Writer) {
				fmt.Fprintf(w, "%s  (%d/%d)\n", lotto.FormatLine(line), st.RevealedCount, st.PoolTotal)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reveal every line")
	cmd.Flags().StringVar(&exclude, "exclude", "", "numbers to exclude, comma separated")
	cmd.Flags().StringVar(&fixed, "fixed", "", "numbers every line must contain, comma separated")
	return cmd
}

// applySettings replaces the view's provisional settings with the given lists.
func applySettings(view *poolview.View, exclude, fixed []int) error {
	if exclude == nil && fixed == nil {
		return nil
	}
	want := lotto.Settings{Exclude: exclude, Fixed: fixed}.Normalize()
	diff := lotto.DiffSettings(view.Provisional(), want)
	for _, n := range diff.ExcludeRemoved {
		if err := view.ToggleExclude(n); err != nil {
			return err
		}
	}
	for _, n := range diff.FixedRemoved {
		if err := view.ToggleFixed(n); err != nil {
			return err
		}
	}
	for _, n := range diff.ExcludeAdded {
		if err := view.ToggleExclude(n); err != nil {
			return err
		}
	}
	for _, n := range diff.FixedAdded {
		if err := view.ToggleFixed(n); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) linesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "Show my lines for the next draw and how the last ones did",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.client.MyLines(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(m, func(w io.Writer) {
				fmt.Fprintf(w, "draw %d:\n", m.TargetDrawNo)
				printLines(w, m.Items)
				if prev := m.PreviousDraw; prev != nil && prev.HasData {
					fmt.Fprintf(w, "previous draw %d: %s + bonus %d\n", prev.DrawNo, lotto.FormatLine(prev.WinningNumbers), prev.Bonus)
					printSummary(w, prev.Summary)
				}
			})
		},
	}
}

func (a *app) performanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "performance",
		Short: "Show match statistics per plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.client.Performance(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "no drawn lines yet")
				}
				for _, p := range items {
					fmt.Fprintf(w, "%-8s %3d lines  avg %.2f  3+:%d 4:%d 5:%d 5+b:%d 6:%d\n",
						p.PlanType, p.TotalLines, p.AvgMatchCount, p.Match3, p.Match4, p.Match5, p.Match5Bonus, p.Match6)
				}
			})
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var opts client.HistoryOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past draws with my lines and their ranks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.client.History(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(h, func(w io.Writer) {
				fmt.Fprintf(w, "%s plan: last %d days, %d draws (page %d)\n", h.Meta.Plan, h.Meta.RetentionDays, h.Meta.Total, h.Meta.Page)
				for _, it := range h.Items {
					rank := "-"
					if it.BestRank != nil {
						rank = fmt.Sprintf("best rank %d", *it.BestRank)
					}
					if !it.HasLines {
						rank = "no lines"
					}
					fmt.Fprintf(w, "  %d  %s  %s + %d  %s\n", it.DrawNo, it.DrawDate, lotto.FormatLine(it.WinningNumbers), it.Bonus, rank)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Search, "search", "q", "", "match a draw number or winning number")
	f.StringVar(&opts.Lines, "lines", "", "all, yes (only draws with my lines) or no")
	f.BoolVar(&opts.Asc, "asc", false, "oldest first")
	f.IntVar(&opts.Page, "page", 0, "page number")
	f.IntVar(&opts.PageSize, "page-size", 0, "items per page")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show draw statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ov, err := a.client.StatsOverview(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := a.client.NumberStats(cmd.Context())
			if err != nil {
				return err
			}
			out := map[string]any{"overview": ov, "numbers": counts}
			return a.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "draws: %d\nmost common: %v\nbonus top: %v\nodd:even %d:%d  avg sum %d\n",
					ov.TotalDraws, ov.MostCommon, ov.BonusTop, ov.OddRatio, ov.EvenRatio, ov.AvgSum)
				for _, c := range counts {
					fmt.Fprintf(w, "  %2d  x%d\n", c.Number, c.Count)
				}
			})
		},
	}
}

func (a *app) freeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free",
		Short: "Take this week's free line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pick, err := a.client.FreeDraw(cmd.Context())
			if client.IsStatus(err, http.StatusTooManyRequests) {
				return errors.New("this week's free lines are used up")
			}
			if err != nil {
				return err
			}
			return a.print(pick, func(w io.Writer) {
				fmt.Fprintf(w, "%s  (draw %d, %d/%d this week)\n",
					lotto.FormatLine(pick.Line), pick.TargetDrawNo, pick.WeeklyUsed, pick.WeeklyLimit)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the weekly free quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.client.FreeStatus(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(st, func(w io.Writer) {
				fmt.Fprintf(w, "%d of %d used, %d left\n", st.WeeklyUsed, st.WeeklyLimit, st.Remaining)
				printLines(w, st.Lines)
			})
		},
	})
	return cmd
}

func (a *app) guestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Draw a lucky number without signing in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.client.GuestDraw(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(g, func(w io.Writer) {
				fmt.Fprintf(w, "your number: %d\n", g.Number)
				if len(g.TopNumbers) > 0 {
					fmt.Fprintf(w, "most frequent lately: %s\n", lotto.FormatLine(g.TopNumbers))
				}
			})
		},
	}
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Load the latest draw, pool, lines and free quota at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := a.client.Dashboard(cmd.Context())
			w := a.out
			if a.asJSON {
				return a.print(d, nil)
			}
			section := func(name string, err error, fn func()) {
				fmt.Fprintf(w, "== %s\n", name)
				if err != nil {
					fmt.Fprintf(w, "  unavailable: %v\n", err)
					return
				}
				fn()
			}
			section("latest draw", d.LatestErr, func() { printDraw(w, d.Latest) })
			if d.Pool == nil && d.PoolErr == nil {
				fmt.Fprintln(w, "sign in to see your pool, lines and free quota")
				return nil
			}
			section("pool", d.PoolErr, func() {
				fmt.Fprintf(w, "  %s  %d/%d revealed\n", d.Pool.State(), d.Pool.RevealedCount, d.Pool.PoolTotal)
			})
			section("my lines", d.MyLinesErr, func() { printLines(w, d.MyLines.Items) })
			section("free picks", d.FreeErr, func() {
				fmt.Fprintf(w, "  %d of %d used\n", d.Free.WeeklyUsed, d.Free.WeeklyLimit)
			})
			return nil
		},
	}
}

func (a *app) logsCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent API calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clear {
				a.client.CallLog().Clear()
				return nil
			}
			entries := a.client.CallLog().Entries()
			return a.print(entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s %-6s %-40s %3d %8s %s\n",
						e.Time.Format("15:04:05"), e.Method, e.Path, e.Status, formatDuration(e.DurationMS), e.Error)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "clear the log")
	return cmd
}

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin operations",
	}

	var date string
	var bonus int
	putDraw := &cobra.Command{
		Use:   `put-draw <draw-no> "<n,n,n,n,n,n>"`,
		Short: "Record a draw result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			no, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("draw number: %w", err)
			}
			nums, err := lotto.ParseNumbers(args[1])
			if err != nil {
				return err
			}
			d, err := a.client.AdminPutDraw(cmd.Context(), no, nums, bonus, date)
			if err != nil {
				return err
			}
			return a.print(d, func(w io.Writer) { printDraw(w, d) })
		},
	}
	putDraw.Flags().IntVar(&bonus, "bonus", 0, "bonus number")
	putDraw.Flags().StringVar(&date, "date", "", "draw date YYYY-MM-DD (default today)")
	_ = putDraw.MarkFlagRequired("bonus")

	setTier := &cobra.Command{
		Use:   "set-tier <user-id> <tier>",
		Short: "Change a user's subscription tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := lotto.ParseTier(args[1])
			if err != nil {
				return err
			}
			p, err := a.client.AdminSetTier(cmd.Context(), args[0], tier)
			if err != nil {
				return err
			}
			return a.print(p, func(w io.Writer) { printProfile(w, p) })
		},
	}

	cmd.AddCommand(putDraw, setTier)
	return cmd
}
