package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a pipeline spec and start its workers",
	Long: `Read a pipeline specification document from disk and submit it to the
coordinator under the given name. Submission starts the job's datum
partitioning and its workers immediately; there is no separate "run" step.

Example:
  falconeri submit --name edges-run --pipeline ./pipeline.json`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		pipelinePath, _ := flags.GetString("pipeline")

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}
		if pipelinePath == "" {
			cmd.Println("Error: --pipeline is required")
			return
		}

		raw, err := os.ReadFile(pipelinePath)
		if err != nil {
			cmd.Printf("Failed to read pipeline file: %v\n", err)
			return
		}

		client := NewClient(viper.GetString("url"), viper.GetString("password"))

		result, err := client.CreateJob(name, json.RawMessage(raw))
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Submit failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Submit failed: %v\n", err)
			}
			return
		}

		cmd.Printf("Job submitted.\nID:     %s\nName:   %s\nStatus: %s\n", result.Job.ID, result.Job.Name, result.Job.Status)
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("name", "n", "", "Unique name for the job (required)")
	flags.StringP("pipeline", "f", "", "Path to the pipeline specification JSON file (required)")

	rootCmd.AddCommand(submitCmd)
}
