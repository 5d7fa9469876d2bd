package main

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/randforest/tabular"
	"github.com/wyfcoding/randforest/xerrors"
)

type distributeOptions struct {
	input      string
	output     string
	label      string
	continuous bool
	balance    float64
	seed       uint64
}

func newDistributeCmd(a *app) *cobra.Command {
	o := &distributeOptions{}
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Rewrite a tab-delimited file so every label class is spread evenly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.distribute(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input file (tab-delimited, with headers)")
	f.StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&o.label, "label", "l", "", "name of the label column")
	f.BoolVar(&o.continuous, "continuous", false, "treat the label as numeric and group it into ranges")
	f.Float64Var(&o.balance, "balance", 0, "cap every class at this multiple of the smallest class (0 = no cap)")
	f.Uint64Var(&o.seed, "seed", 0, "shuffle seed (0 = time-based)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func (a *app) distribute(cmd *cobra.Command, o *distributeOptions) error {
	in, err := os.Open(o.input)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		file, err := os.Create(o.output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	mode := tabular.Discrete
	if o.continuous {
		mode = tabular.Continuous
	}
	seed := o.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return xerrors.Derive(xerrors.ErrEmptyData, "%s has no header line", o.input)
	}
	d, err := tabular.NewDistributor(out, mode, o.label, strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t"), seed)
	if err != nil {
		return err
	}
	d.SetBalanced(o.balance)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if err := d.Write(strings.Split(line, "\t")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	a.logger.InfoContext(cmd.Context(), "distributing lines", "lines", d.Count(), "balance", o.balance)
	return d.Close()
}
