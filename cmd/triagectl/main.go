// triagectl scores patient files offline with the same rules the server uses.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medcognis/triagedesk/internal/ingest"
	"github.com/medcognis/triagedesk/internal/triage"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "triagectl",
		Short:        "Offline triage scoring for patient files",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(scoreCmd())
	root.AddCommand(assessCmd())
	return root
}

func scoreCmd() *cobra.Command {
	var output string
	var withSeed bool

	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Normalize and score a patient file, printing the ranked board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "table" {
				return fmt.Errorf("invalid --output %q (json or table)", output)
			}
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			up, err := ingest.New(nil).Normalize(cmd.Context(), filepath.Base(path), content)
			if err != nil {
				return err
			}

			var board triage.Board
			if withSeed {
				board = triage.NewBoard(triage.DefaultSeed()...)
			}
			ranked := board.With(up.Patients...).Ranked()

			if output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}
			return writeTable(cmd.OutOrStdout(), ranked)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: json or table")
	cmd.Flags().BoolVar(&withSeed, "with-seed", false, "rank the file together with the built-in demo patients")
	return cmd
}

func writeTable(w io.Writer, patients []triage.Patient) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tSCORE\tLEVEL\tDEPARTMENT\tSYMPTOMS")
	for _, p := range patients {
		level := string(p.RiskLevel)
		if p.Overridden {
			level += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Age, p.RiskScore, level, p.Department, strings.Join(p.Symptoms, ", "))
	}
	return tw.Flush()
}

func assessCmd() *cobra.Command {
	var (
		symptoms []string
		history  []string
		v        = triage.Vitals{HeartRate: 80, BloodPressure: "120/80", SpO2: 98, Temperature: 37.0}
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one patient from flags and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := triage.Assess(symptoms, v, history)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&symptoms, "symptom", nil, "presenting symptom (repeatable)")
	f.StringArrayVar(&history, "history", nil, "pre-existing condition (repeatable)")
	f.IntVar(&v.HeartRate, "heart-rate", v.HeartRate, "heart rate in bpm")
	f.IntVar(&v.SpO2, "spo2", v.SpO2, "oxygen saturation in percent")
	f.Float64Var(&v.Temperature, "temperature", v.Temperature, "temperature in Celsius")
	f.StringVar(&v.BloodPressure, "blood-pressure", v.BloodPressure, "blood pressure as systolic/diastolic")
	return cmd
}
