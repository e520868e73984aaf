package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foldbatch/internal/config"
	"foldbatch/internal/model"
	"foldbatch/internal/report"
	"foldbatch/internal/runstore"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the batch summary from the queue snapshot",
	Long: `Rebuilds batch_summary.json and batch_summary.csv from the persisted
queue state. Useful after a crash, or to re-export the CSV after the
snapshot changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		store, err := runstore.New(cfg.OutputDir)
		if err != nil {
			return err
		}
		snap, err := store.LoadSnapshot()
		if err != nil {
			return err
		}
		run := runFromSnapshot(snap, store.OutputDir())
		if err := report.WriteSummary(store, run); err != nil {
			return err
		}
		if err := report.WriteCSV(store, run); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s and %s (%d successful, %d failed, %d pending)\n",
			store.SummaryPath(), store.SummaryCSVPath(), run.Successful, run.Failed, len(snap.JobsQueue))
		return nil
	},
}

// runFromSnapshot reconstructs a summary view of whatever the snapshot
// holds. Pending jobs are counted in the total but appear in neither
// terminal list.
func runFromSnapshot(snap model.QueueSnapshot, outputDir string) model.BatchRun {
	return model.BatchRun{
		StartTime:       snap.Timestamp,
		EndTime:         snap.Timestamp,
		TotalJobs:       len(snap.JobsQueue) + len(snap.CompletedJobs) + len(snap.FailedJobs),
		Successful:      len(snap.CompletedJobs),
		Failed:          len(snap.FailedJobs),
		CompletedJobs:   snap.CompletedJobs,
		FailedJobs:      snap.FailedJobs,
		OutputDirectory: outputDir,
	}
}
