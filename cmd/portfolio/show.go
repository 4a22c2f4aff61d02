package main

import (
	"fmt"

	"github.com/jonathan/analytics-portfolio/internal/terminal"
	"github.com/spf13/cobra"
)

var (
	showStyle string
	showWidth int
	showRaw   bool
)

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one project as formatted Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showStyle, "style", "auto", "Glamour style: auto, dark, light, notty or a JSON style path")
	showCmd.Flags().IntVar(&showWidth, "width", terminal.DefaultWordWrap, "Word wrap width")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the Markdown source without styling")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}

	key := args[0]
	p, ok := c.Lookup(key)
	if !ok {
		return fmt.Errorf("project not found: %s", key)
	}

	md := terminal.ProjectMarkdown(p, cfg.BaseDir)
	if showRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	rendered, err := terminal.RenderMarkdown(md, showStyle, showWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
