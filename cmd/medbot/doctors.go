package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medbot/medbot/internal/dataset"
	"github.com/medbot/medbot/internal/domain/directory"
	"github.com/medbot/medbot/internal/domain/triage"
)

func doctorsCmd() *cobra.Command {
	var (
		datasetPath string
		symptom     string
		top         int
	)
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List doctors, or recommend doctors for a symptom",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Load(datasetPath)
			if err != nil {
				return err
			}
			dir, err := directory.FromDataset(ds)
			if err != nil {
				return err
			}
			doctors := dir.All()
			if symptom != "" {
				doctors = dir.Recommend(triage.Label(strings.ToLower(strings.TrimSpace(symptom))), top)
			}
			return printDoctors(cmd.OutOrStdout(), doctors)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file (defaults to the embedded dataset)")
	cmd.Flags().StringVar(&symptom, "symptom", "", "recommend doctors for this symptom")
	cmd.Flags().IntVar(&top, "top", directory.DefaultTopN, "number of doctors to recommend")
	return cmd
}

func printDoctors(out io.Writer, doctors []directory.Doctor) error {
	if len(doctors) == 0 {
		_, err := fmt.Fprintln(out, "No doctors found.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSPECIALTY\tRATING\tSLOTS")
	for _, d := range doctors {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\n", d.Name, d.Specialty, d.Rating, strings.Join(d.Slots, ", "))
	}
	return w.Flush()
}
