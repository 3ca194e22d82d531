package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs known to the coordinator",
	Long:  `List jobs in order of creation, most recent first.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client := NewClient(viper.GetString("url"), viper.GetString("password"))

		result, err := client.ListJobs(limit, offset)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("List failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("List failed: %v\n", err)
			}
			return
		}

		if len(result.Jobs) == 0 {
			cmd.Println("No jobs found.")
			return
		}

		for _, job := range result.Jobs {
			cmd.Printf("%s  %-30s  %s\n", job.ID, job.Name, colorizeStatus(job.Status))
		}
	},
}

func init() {
	flags := listCmd.Flags()
	flags.Int("limit", 50, "Maximum number of jobs to return")
	flags.Int("offset", 0, "Number of jobs to skip")

	rootCmd.AddCommand(listCmd)
}
