package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/orchestrator"
)

func newOrchestrateCommand(ctx *commandContext) *cobra.Command {
	var (
		owner    string
		url      string
		mediaID  string
		title    string
		key      string
		lang     string
		topN     int
		noRender bool
		keywords []string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Run the one-click pipeline for a source URL or existing media",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator()
			if err != nil {
				return err
			}
			if key == "" {
				key = uuid.NewString()
			}

			req := orchestrator.Request{
				OwnerSubject:   owner,
				URL:            url,
				MediaID:        mediaID,
				Title:          title,
				IdempotencyKey: key,
				Options: orchestrator.Options{
					Lang:          lang,
					TopN:          topN,
					BoostKeywords: keywords,
				},
			}
			if noRender {
				off := false
				req.Options.EnqueueRender = &off
			}

			record, err := coord.Orchestrate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOut || !stdoutIsTerminal() {
				return writeJSON(cmd, record)
			}
			return printRecord(cmd, key, record)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner subject the run is scoped to")
	cmd.Flags().StringVar(&url, "url", "", "Source URL to ingest")
	cmd.Flags().StringVar(&mediaID, "media-id", "", "Existing media id to reuse")
	cmd.Flags().StringVar(&title, "title", "", "Project title for new projects")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key (random when omitted)")
	cmd.Flags().StringVar(&lang, "lang", "", "Transcript language hint")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Number of highlight windows to request")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "Skip render job enqueueing")
	cmd.Flags().StringArrayVar(&keywords, "keyword", nil, "Boost keyword (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func printRecord(cmd *cobra.Command, key string, record *orchestrator.Record) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Idempotency key: %s\n", key)
	fmt.Fprintf(out, "Project: %s (created: %t)\n", record.ProjectID, record.CreatedProject)
	fmt.Fprintf(out, "Media: %s\n", record.MediaID)
	fmt.Fprintf(out, "Detect job: #%d (%s)\n", record.DetectJob.JobID, record.DetectJob.Status)
	fmt.Fprintf(out, "Recommendations: %d of %d requested\n", record.Computed, record.Requested)

	if len(record.RenderJobs) > 0 {
		rows := make([][]string, 0, len(record.RenderJobs))
		for i, ref := range record.RenderJobs {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				ref.ClipID,
				strconv.FormatInt(ref.JobID, 10),
				string(ref.Status),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Rank", "Clip", "Job", "Status"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
	}
	return nil
}
