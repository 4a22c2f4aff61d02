package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const churnProject = `
key: churn
title: Churn Model
summary: Gradient boosting on usage data.
tags: [AI, ML]
tools: [Python, SQL]
impact:
  - Improved retention efficiency by 12%
visuals:
  - type: bar
    data_path: data/sales.csv
    x: region
    y: revenue
    title: Revenue by Region
diagram:
  type: flow
  nodes: [Input, Model, Output]
  edges:
    - [Input, Model]
    - [Model, Output]
downloads:
  - label: Results
    path: data/sales.csv
`

const industryProject = `
key: industry
title: Industry Classification
summary: LLM labelling of companies.
tags: [AI, NLP]
tools: [Python]
`

// fixture lays out a portfolio under a temp dir and returns the flags that point at it.
func fixture(t *testing.T) (string, []string) {
	t.Helper()
	base := t.TempDir()
	writeFile(t, base, "projects/churn.yaml", churnProject)
	writeFile(t, base, "projects/industry.yaml", industryProject)
	writeFile(t, base, "data/sales.csv", "region,revenue\nNorth,10\nSouth,7\n")
	return base, []string{
		"--projects", filepath.Join(base, "projects"),
		"--base-dir", base,
		"--profile", filepath.Join(base, "profile.yaml"),
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// executeCommand runs the root command in-process with fresh flag values.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
