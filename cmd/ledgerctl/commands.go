package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandonwu32/financedashboard/internal/backend"
	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
	"github.com/brandonwu32/financedashboard/internal/period"
	"github.com/brandonwu32/financedashboard/internal/registry"
	"github.com/brandonwu32/financedashboard/internal/storage"
)

// withBackend opens the backend for one command and closes it after.
func (a *app) withBackend(cmd *cobra.Command, fn func(*backend.Backend) error) error {
	b, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

func newPendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending access requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := a.admin()
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				reqs, err := b.Access.PendingRequests(cmd.Context(), admin)
				if err != nil {
					return err
				}
				rows := make([][]string, len(reqs))
				for i, r := range reqs {
					rows[i] = []string{r.Email, r.RequestedAt, r.Notes}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTitle(fmt.Sprintf("Pending requests (%d)", len(reqs))))
				fmt.Fprint(out, renderTable([]string{"Email", "Requested At", "Notes"}, rows))
				return nil
			})
		},
	}
}

func newApproveCmd(a *app) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "approve <email>",
		Short: "Approve an access request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := a.admin()
			if err != nil {
				return err
			}
			lvl, err := core.ParseAccessLevel(level)
			if err != nil {
				return core.E(core.ErrInput, "approve", err)
			}
			email := core.NormalizeEmail(args[0])
			ok, err := a.confirmed(fmt.Sprintf("Approve %s as %s?", email, lvl))
			if err != nil || !ok {
				return aborted(cmd, err)
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				entry, err := b.Access.Approve(cmd.Context(), admin, email, string(lvl))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Approved"))
				fmt.Fprint(cmd.OutOrStdout(), renderEntry(entry))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", string(core.LevelUser), "Access level: User or Admin")
	return cmd
}

func newRejectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <email>",
		Short: "Reject an access request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := a.admin()
			if err != nil {
				return err
			}
			email := core.NormalizeEmail(args[0])
			ok, err := a.confirmed(fmt.Sprintf("Reject the request from %s?", email))
			if err != nil || !ok {
				return aborted(cmd, err)
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				req, err := b.Access.Reject(cmd.Context(), admin, email)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("Rejected"))
				fmt.Fprint(cmd.OutOrStdout(), renderFields([][2]string{
					{"Email", req.Email},
					{"Status", string(req.Status)},
					{"Notes", req.Notes},
				}))
				return nil
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <email>",
		Short: "Show access and onboarding state for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				st, err := b.Access.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(st))
				return nil
			})
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <ledger-id>",
		Short: "Check that a ledger has the required sections and headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				res := registry.VerifySchema(cmd.Context(), b.Store, args[0])
				if !res.OK {
					fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("Schema mismatch"))
					fmt.Fprint(cmd.OutOrStdout(), renderFields([][2]string{
						{"Section", res.Section},
						{"Reason", res.Reason},
					}))
					return core.Errorf(core.ErrSchemaMismatch, "verify", "ledger %s: %s", args[0], res.Reason)
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Ledger "+args[0]+" is valid"))
				return nil
			})
		},
	}
}

func newBootstrapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap-admin <email>",
		Short: "Make the first administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := core.NormalizeEmail(args[0])
			ok, err := a.confirmed(fmt.Sprintf("Make %s an administrator?", email))
			if err != nil || !ok {
				return aborted(cmd, err)
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				entry, err := b.Access.BootstrapAdmin(cmd.Context(), email)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderEntry(entry))
				return nil
			})
		},
	}
}

func newPeriodsCmd(a *app) *cobra.Command {
	var (
		cadence string
		count   int
		day     string
	)
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Show recent period windows, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			anchor, err := a.cfg.Anchor()
			if err != nil {
				return err
			}
			raw := cadence
			if raw == "" {
				raw = a.cfg.DefaultCadence
			}
			c, err := core.ParseCadence(raw)
			if err != nil {
				return err
			}
			now := a.now()
			ref := now
			if day != "" {
				d, ok := dates.Normalize(day, now)
				if !ok {
					return core.Errorf(core.ErrInput, "periods", "unrecognized date %q", day)
				}
				ref = d.Time(now.Location())
			}
			ps, err := period.Ending(c, anchor, ref, now, count)
			if err != nil {
				return err
			}
			rows := make([][]string, len(ps))
			for i, p := range ps {
				current := ""
				if p.IsCurrent {
					current = "*"
				}
				rows[i] = []string{
					p.Label,
					dates.FromTime(p.Start).ISO(),
					dates.FromTime(p.End).ISO(),
					strconv.Itoa(p.Days()),
					current,
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTitle(fmt.Sprintf("%s periods (anchor %s)", capitalize(string(c)), anchor.ISO())))
			fmt.Fprint(out, renderTable([]string{"Label", "Start", "End", "Days", "Current"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&cadence, "cadence", "", "weekly, biweekly, monthly or yearly (default from DEFAULT_CADENCE)")
	cmd.Flags().IntVarP(&count, "count", "n", 6, "Number of periods")
	cmd.Flags().StringVar(&day, "date", "", "Reference day (default today)")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := storage.NewSQLiteRepository(a.cfg.AuditDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			events, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, len(events))
			for i, ev := range events {
				count := ""
				if ev.Count > 0 {
					count = strconv.Itoa(ev.Count)
				}
				rows[i] = []string{
					ev.At.Format("2006-01-02 15:04:05"),
					string(ev.Type),
					ev.Actor,
					ev.Subject,
					ev.LedgerID,
					count,
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTitle(fmt.Sprintf("Audit log (%d)", len(events))))
			fmt.Fprint(out, renderTable([]string{"At", "Type", "Actor", "Subject", "Ledger", "Count"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "Maximum events to show")
	return cmd
}

func aborted(cmd *cobra.Command, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Aborted"))
	return nil
}

func renderEntry(e core.RegistryEntry) string {
	return renderFields([][2]string{
		{"Email", e.Email},
		{"Status", string(e.Status)},
		{"Access", string(e.AccessLevel)},
		{"Ledger", orDash(e.LedgerID)},
		{"Notes", e.Notes},
	})
}

func renderStatus(st registry.AccessStatus) string {
	pairs := [][2]string{
		{"Email", st.Email},
		{"Status", string(st.Status)},
		{"Access", orDash(string(st.AccessLevel))},
		{"Allowed", yesNo(st.Allowed)},
		{"Admin", yesNo(st.IsAdmin)},
		{"Onboarded", yesNo(st.Onboarded)},
		{"Ledger", orDash(st.LedgerID)},
	}
	if st.Request != nil {
		pairs = append(pairs, [2]string{"Request", fmt.Sprintf("%s (%s)", st.Request.Status, st.Request.RequestedAt)})
	}
	if st.Verify != nil {
		schema := okStyle.Render("ok")
		if !st.Verify.OK {
			schema = failStyle.Render(st.Verify.Reason)
		}
		pairs = append(pairs, [2]string{"Schema", schema})
	}
	return renderFields(pairs)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
