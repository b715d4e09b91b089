package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/execute"
	"github.com/dshills/taskdeck/internal/notify"
	"github.com/dshills/taskdeck/internal/watch"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the catalog's sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		multi := eng.aggregator.MultiRoot()
		for _, sec := range eng.aggregator.ListSections() {
			line := sec.Label(multi)
			if hidden := eng.aggregator.HiddenCount(sec); hidden > 0 {
				line = fmt.Sprintf("%s (%d hidden)", line, hidden)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks <section>",
	Short: "List a section's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		sec, err := eng.findSection(args[0])
		if err != nil {
			return err
		}
		for _, t := range eng.aggregator.ListTasks(sec) {
			switch {
			case t.IsError():
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t[error: %s]\n", t.Name, t.Err)
			case t.Detail != "":
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Name, t.Detail)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), t.Name)
			}
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <section> <task>",
	Short: "Build the launch request for a task and record it as recent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		sec, err := eng.findSection(args[0])
		if err != nil {
			return err
		}
		task, err := eng.findTask(sec, args[1])
		if err != nil {
			return err
		}

		req, err := eng.builder.Build(task)
		if err != nil {
			return err
		}
		eng.recency.Record(task)

		switch req.Kind {
		case execute.KindDebug:
			fmt.Fprintf(cmd.OutOrStdout(), "debug %v (root %s)\n",
				req.Debug.ConfigNames, req.Debug.Root.Name)
		case execute.KindShell:
			fmt.Fprintf(cmd.OutOrStdout(), "cd %s && %s\n",
				req.Shell.Dir, req.Shell.CommandLine())
		}
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently run tasks, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		forget, _ := cmd.Flags().GetString("forget")
		if forget != "" {
			for _, t := range eng.recency.Tasks() {
				if t.Name == forget {
					eng.recency.Remove(t)
				}
			}
		}

		for _, e := range eng.recency.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t[%s]\t%s\n", e.Name, e.Dialect, e.RootName)
		}
		return nil
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide <section> [task]",
	Short: "Hide a task, or a whole section when no task is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		sec, err := eng.findSection(args[0])
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if sec.Dialect == catalog.DialectRecent {
				return fmt.Errorf("the %s section cannot be hidden", sec.Title)
			}
			eng.visibility.HideSection(sec)
			return nil
		}

		task, err := eng.findTask(sec, args[1])
		if err != nil {
			return err
		}
		eng.visibility.HideTask(task)
		return nil
	},
}

var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "List hidden tasks and sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		for _, e := range eng.visibility.HiddenSections() {
			fmt.Fprintf(cmd.OutOrStdout(), "section\t%s\t%s\n", e.Title, e.Detail)
		}
		for _, e := range eng.visibility.HiddenTasks() {
			fmt.Fprintf(cmd.OutOrStdout(), "task\t%s\t%s\n", e.Title, e.Detail)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [title]",
	Short: "Restore hidden tasks and sections by title, or everything with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		if all {
			eng.visibility.ClearAll()
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("give a title to restore, or --all")
		}

		title := args[0]
		restored := false
		for _, e := range eng.visibility.HiddenSections() {
			if e.Title == title {
				eng.visibility.RestoreSection(e.Identity)
				restored = true
			}
		}
		for _, e := range eng.visibility.HiddenTasks() {
			if e.Title == title {
				eng.visibility.RestoreTask(e.Identity)
				restored = true
			}
		}
		if !restored {
			return fmt.Errorf("nothing hidden is titled %q", title)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the roots and report catalog refreshes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		sub := eng.notifier.Subscribe(func(change notify.Change) {
			if change.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "refresh (%s): %s\n", change.Reason, change.Path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "refresh (%s)\n", change.Reason)
			}
			// Pull a fresh tree; the latest delivery is authoritative.
			for _, sec := range eng.aggregator.ListSections() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d tasks\n",
					sec.Label(eng.aggregator.MultiRoot()), len(eng.aggregator.ListTasks(sec)))
			}
		})
		defer sub.Unsubscribe()

		w, err := watch.New(eng.ws, eng.scripts, eng.notifier, eng.debounce(), logger)
		if err != nil {
			return err
		}
		defer w.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "watching; press Ctrl-C to stop")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	recentCmd.Flags().String("forget", "", "remove the named task from the recent list")
	restoreCmd.Flags().Bool("all", false, "restore every hidden task and section")

	rootCmd.AddCommand(sectionsCmd, tasksCmd, runCmd, recentCmd, hideCmd, hiddenCmd, restoreCmd, watchCmd)
}
