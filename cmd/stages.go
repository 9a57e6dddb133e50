package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/stages"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List registered bootstrap stages and their dependencies",
	RunE:  runStages,
}

func runStages(cmd *cobra.Command, args []string) error {
	reg := pipeline.NewRegistry()
	if err := stages.Register(reg); err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Stage", "Depends On"})
	for _, s := range reg.Stages() {
		tw.AppendRow(table.Row{s.Name(), strings.Join(s.DependsOn(), ", ")})
	}
	tw.Render()
	return nil
}
