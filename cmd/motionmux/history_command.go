package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
	"motionmux/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var pruneDays int
	var imageFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transform attempts from the history journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("history journal is disabled (paths.history_path is empty)")
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d attempts older than %d days\n", removed, pruneDays)
				return nil
			}

			var attempts []history.Attempt
			if strings.TrimSpace(imageFilter) != "" {
				image, err := config.ExpandPath(strings.TrimSpace(imageFilter))
				if err != nil {
					return err
				}
				attempts, err = store.ForImage(cmd.Context(), image)
				if err != nil {
					return err
				}
			} else {
				attempts, err = store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No attempts recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Status", "Trigger", "Image", "Output", "Duration", "Error"},
				attemptRows(attempts),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	cmd.Flags().StringVar(&imageFilter, "image", "", "Show every attempt for one image, oldest first")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete attempts older than this many days instead of listing")
	return cmd
}

func attemptRows(attempts []history.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		output := "-"
		if a.Output != "" {
			output = filepath.Base(a.Output)
		}
		rows = append(rows, []string{
			a.StartedAt.Local().Format(time.DateTime),
			string(a.Status),
			a.Trigger,
			a.Image,
			output,
			formatDuration(a.Duration()),
			truncate(a.Error, 60),
		})
	}
	return rows
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return d.Round(100 * time.Millisecond).String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
