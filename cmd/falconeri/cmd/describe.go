package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"falconeri/pkg/api"
)

var describeCmd = &cobra.Command{
	Use:   "describe <job_id>",
	Short: "Show detailed status for a job",
	Long: `Retrieve a job's current status together with a datum status
histogram and the datums most useful for diagnosing a stuck run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		client := NewClient(viper.GetString("url"), viper.GetString("password"))

		result, err := client.DescribeJob(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Describe failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Describe failed: %v\n", err)
			}
			return
		}

		printJobDescribe(cmd, result)
	},
}

func printJobDescribe(cmd *cobra.Command, d *api.JobDescribeResponse) {
	icon := statusIcon(d.Job.Status)
	cmd.Printf("%s %sJob %s%s\n", icon, colorBold, d.Job.Name, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s       %s\n", colorDim, colorReset, d.Job.ID)
	cmd.Printf("%sStatus:%s   %s\n", colorDim, colorReset, colorizeStatus(d.Job.Status))
	cmd.Printf("%sCreated:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(d.Job.CreatedAt))
	cmd.Printf("%sUpdated:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(d.Job.UpdatedAt))

	cmd.Println()
	cmd.Printf("%sDatums by status:%s\n", colorDim, colorReset)
	for _, c := range d.DatumStatusCounts {
		cmd.Printf("  %-10s %d\n", colorizeStatus(c.Status), c.Count)
	}

	if len(d.FailedDatums) > 0 {
		cmd.Println()
		cmd.Printf("%sFailed datums:%s\n", colorDim, colorReset)
		for _, datum := range d.FailedDatums {
			msg := ""
			if datum.ErrorMessage != nil {
				msg = *datum.ErrorMessage
			}
			cmd.Printf("  %s  attempt %d/%d  %s\n", datum.ID, datum.AttemptedRunCount, datum.MaximumAllowedRunCount, msg)
		}
	}

	if len(d.RunningDatums) > 0 {
		cmd.Println()
		cmd.Printf("%sRunning datums:%s\n", colorDim, colorReset)
		for _, datum := range d.RunningDatums {
			pod := "-"
			if datum.PodName != nil {
				pod = *datum.PodName
			}
			cmd.Printf("  %s  pod %s\n", datum.ID, pod)
		}
	}
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
