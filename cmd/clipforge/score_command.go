package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/scoring"
)

// newScoreCommand scores a windows file offline, without touching the
// database. Useful for tuning thresholds against captured detector output.
func newScoreCommand(ctx *commandContext) *cobra.Command {
	var (
		topN     int
		keywords []string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score candidate windows from a JSON file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var reader io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open windows file: %w", err)
				}
				defer file.Close()
				reader = file
			}

			var windows []scoring.Window
			if err := json.NewDecoder(reader).Decode(&windows); err != nil {
				return fmt.Errorf("decode windows: %w", err)
			}

			selCfg := scoring.SelectorConfig{
				TargetDurationSec: cfg.Scoring.TargetDurationSec,
				MinSpeechDensity:  cfg.Scoring.MinSpeechDensity,
				MaxSilencePenalty: cfg.Scoring.MaxSilencePenalty,
				BoostKeywords:     append(append([]string{}, cfg.Scoring.BoostKeywords...), keywords...),
				Weights:           scoring.DefaultWeights(),
			}
			result := scoring.SelectTop(windows, topN, selCfg)

			if jsonOut || !stdoutIsTerminal() {
				return writeJSON(cmd, result)
			}

			rows := make([][]string, 0, len(result.Windows))
			for i, scored := range result.Windows {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%d-%d", scored.Window.StartMS, scored.Window.EndMS),
					fmt.Sprintf("%.4f", scored.Score),
					result.Explanations[scored.Window.Key()],
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Rank", "Window (ms)", "Score", "Explanation"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top-n", 3, "Number of windows to keep")
	cmd.Flags().StringArrayVar(&keywords, "keyword", nil, "Boost keyword (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
