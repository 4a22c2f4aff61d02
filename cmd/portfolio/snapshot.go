package main

import (
	"fmt"
	"time"

	"github.com/jonathan/analytics-portfolio/internal/routing"
	"github.com/jonathan/analytics-portfolio/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	snapshotURL     string
	snapshotProject string
	snapshotOut     string
	snapshotTimeout time.Duration
	snapshotSettle  time.Duration
	snapshotWidth   int
	snapshotHeight  int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture a served page as PDF or PNG",
	Long: `Open a page of a running portfolio server in headless Chrome and save it. The format follows
the --out extension (.pdf or .png). --project selects a detail page on the local server.
Chrome or Chromium must be installed.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "Page to capture (default http://localhost:<port>/)")
	snapshotCmd.Flags().StringVarP(&snapshotProject, "project", "p", "", "Capture this project's detail page on the local server")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "Output file (.pdf or .png)")
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", snapshot.DefaultTimeout, "Give up after this long")
	snapshotCmd.Flags().DurationVar(&snapshotSettle, "settle", snapshot.DefaultSettle, "Wait this long after load before capturing")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", snapshot.DefaultWidth, "Viewport width in pixels")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", snapshot.DefaultHeight, "Viewport height in pixels")
	if err := snapshotCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	target, err := snapshotTarget()
	if err != nil {
		return err
	}

	err = snapshot.Capture(cmd.Context(), snapshot.Options{
		URL:     target,
		Out:     snapshotOut,
		Timeout: snapshotTimeout,
		Settle:  snapshotSettle,
		Width:   snapshotWidth,
		Height:  snapshotHeight,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", snapshotOut)
	return nil
}

// snapshotTarget builds the page URL from --url and --project.
func snapshotTarget() (string, error) {
	if snapshotURL != "" && snapshotProject != "" {
		return "", fmt.Errorf("--url and --project cannot be combined")
	}
	if snapshotURL != "" {
		return snapshotURL, snapshot.CheckURL(snapshotURL)
	}
	base := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if snapshotProject == "" {
		return base + "/", nil
	}
	return base + routing.State{}.WithProject(snapshotProject).URL(), nil
}
