package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/settings-sdk/internal/history"
	"github.com/mesh-intelligence/settings-sdk/internal/paths"
)

// errHistoryCheck marks a history check that found problems.
var errHistoryCheck = errors.New("history check failed")

func (a *app) newHistoryCmd() *cobra.Command {
	var dirFlag string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Track published versions and check they stay readable",
	}
	cmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "history directory (default: history_dir from config, then platform data dir)")

	open := func() (*history.Ledger, error) {
		dir, err := paths.ResolveHistoryDir(dirFlag, a.cfg.HistoryDir, a.configDir, a.ext.Name())
		if err != nil {
			return nil, sysErr("resolve history dir: %w", err)
		}
		l, err := history.Open(dir, a.ext.Name())
		if err != nil {
			return nil, sysErr("open history: %w", err)
		}
		a.logger.Debug("history opened", "path", l.Path())
		return l, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "record",
		Short: "Record every registered version not yet in the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := open()
			if err != nil {
				return err
			}
			defer l.Close()

			added, err := l.Record(a.ext)
			if errors.Is(err, history.ErrVersionMutated) {
				return err
			}
			if err != nil {
				return sysErr("record: %w", err)
			}
			if len(added) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to record")
				return nil
			}
			for _, rec := range added {
				state := "complete"
				if !rec.Complete {
					state = "partial"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %.12s (%s defaults)\n", rec.Version, rec.Fingerprint, state)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check recorded versions against the current build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := open()
			if err != nil {
				return err
			}
			defer l.Close()

			rep, err := l.Check(a.ext)
			if err != nil {
				return sysErr("check: %w", err)
			}
			out, err := yaml.Marshal(rep)
			if err != nil {
				return sysErr("render report: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return sysErr("write report: %w", err)
			}
			if !rep.OK() {
				a.logger.Warn("history check failed",
					"removed", len(rep.Removed),
					"mutated", len(rep.Mutated),
					"undecodable", len(rep.Undecodable),
					"migration_failures", len(rep.MigrationFailures),
					"gaps", len(rep.Gaps))
				return errHistoryCheck
			}
			return nil
		},
	})
	return cmd
}
