package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newImpactCmd(a *app) *cobra.Command {
	var (
		model string
		name  string
		top   int
	)
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "List the accumulated impact of each input feature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, _, err := a.openModel(cmd, model, name, nil)
			if err != nil {
				return err
			}
			var features []string
			if model != "" {
				if features, err = readLines(model + ".features"); err != nil && !os.IsNotExist(err) {
					return err
				}
			}

			impact := f.Impact()
			order := make([]int, len(impact))
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(i, j int) bool { return impact[order[i]] > impact[order[j]] })
			if top > 0 && top < len(order) {
				order = order[:top]
			}

			w := cmd.OutOrStdout()
			for _, i := range order {
				label := strconv.Itoa(i)
				if i < len(features) {
					label = features[i]
				}
				fmt.Fprintf(w, "%s\t%.6f\n", label, impact[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model file")
	cmd.Flags().StringVar(&name, "name", "", "model name in the configured model repository")
	cmd.Flags().IntVar(&top, "top", 0, "show only the N most important features")
	return cmd
}
