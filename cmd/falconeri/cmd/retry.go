package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var retryCmd = &cobra.Command{
	Use:   "retry <job_id>",
	Short: "Re-queue a job's errored datums",
	Long: `Re-queue every datum of a job that errored but still has attempts
remaining, immediately rather than waiting for the coordinator's next
background retry pass.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		client := NewClient(viper.GetString("url"), viper.GetString("password"))

		result, err := client.RetryJob(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Retry failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Retry failed: %v\n", err)
			}
			return
		}

		cmd.Printf("Requeued %d datum(s).\n", result.Requeued)
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
