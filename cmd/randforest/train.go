package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/randforest/config"
	"github.com/wyfcoding/randforest/evaluation"
	"github.com/wyfcoding/randforest/forest"
	"github.com/wyfcoding/randforest/randomizer"
	"github.com/wyfcoding/randforest/report"
	"github.com/wyfcoding/randforest/tabular"
)

type trainOptions struct {
	input    string
	test     string
	label    string
	meta     []string
	labels   []string
	model    string
	store    bool
	trialLog string
	seed     uint64
	forest   config.ForestConfig
}

func newTrainCmd(a *app) *cobra.Command {
	o := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a random forest on a tab-delimited file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.train(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "training file (tab-delimited, with headers)")
	f.StringVar(&o.test, "test", "", "optional testing file used to report accuracy")
	f.StringVarP(&o.label, "label", "l", "", "name of the label column")
	f.StringSliceVar(&o.meta, "meta", nil, "metadata columns that are neither features nor labels")
	f.StringSliceVar(&o.labels, "labels", nil, "label values in class order (default: sorted distinct values)")
	f.StringVarP(&o.model, "model", "m", "", "output model file")
	f.BoolVar(&o.store, "store", false, "save the model to the configured model repository")
	f.StringVar(&o.trialLog, "trial-log", "", "append a summary of this run to the trial log")
	f.Uint64Var(&o.seed, "seed", 0, "process-wide random seed (0 keeps the configured or time-based seed)")
	f.IntVar(&o.forest.Trees, "trees", 0, "number of trees")
	f.IntVar(&o.forest.Features, "features", 0, "features considered at each split")
	f.IntVar(&o.forest.LeafLimit, "leaf-limit", 0, "maximum examples in a leaf")
	f.IntVar(&o.forest.Examples, "examples", 0, "examples sampled for each tree")
	f.IntVar(&o.forest.MaxDepth, "max-depth", 0, "maximum tree depth")
	f.StringVar(&o.forest.Method, "method", "", "sampling method: "+methodNames())
	f.IntVar(&o.forest.Workers, "workers", 0, "parallel tree builders (default GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func methodNames() string {
	var names []string
	for _, m := range randomizer.Methods() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

func (a *app) train(cmd *cobra.Command, o *trainOptions) error {
	ctx := cmd.Context()
	if o.model == "" && !o.store {
		return fmt.Errorf("one of --model or --store is required")
	}

	training, err := readLabeled(o.input, o.label, o.meta, o.labels)
	if err != nil {
		return err
	}
	ds := training.Data

	parms := forest.ParmsFor(ds)
	if _, err := parms.ApplyConfig(a.cfg.Forest); err != nil {
		return err
	}
	if _, err := parms.ApplyConfig(o.forest); err != nil {
		return err
	}
	switch {
	case o.seed != 0:
		forest.SetSeed(o.seed)
	case a.cfg.Forest.Seed != 0:
		forest.SetSeed(a.cfg.Forest.Seed)
	}
	workers := o.forest.Workers
	if workers == 0 {
		workers = a.cfg.Forest.Workers
	}

	reporters := report.Multi{report.NewLogReporter(a.logger, parms.NumTrees())}
	if a.metrics != nil {
		reporters = append(reporters, report.NewMetricsReporter(a.metrics, o.input))
	}
	a.logger.InfoContext(ctx, "training forest", "rows", ds.Rows(), "inputs", ds.NumInputs(),
		"labels", ds.NumLabels(), "parms", parms.String())

	model, err := forest.New(ctx, ds, parms,
		forest.WithReporter(reporters),
		forest.WithLogger(a.logger),
		forest.WithMetrics(a.metrics),
		forest.WithWorkers(workers),
	)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("%s\n", parms)
	if o.test != "" {
		testing, err := readLabeled(o.test, o.label, o.meta, training.Labels)
		if err != nil {
			return err
		}
		tally, err := model.Evaluate(ctx, testing.Data)
		if err != nil {
			return err
		}
		confusion, err := evaluation.NewConfusion(tally, testing.Data.Labels())
		if err != nil {
			return err
		}
		summary += evaluation.Report(confusion) + "\nConfusion matrix (actual x predicted):\n" + confusion.String()
	}
	fmt.Fprint(cmd.OutOrStdout(), summary)

	if o.model != "" {
		if err := saveModelFile(o.model, model, training); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "model saved to %s\n", o.model)
	}
	if o.store {
		repo, err := a.repository()
		if err != nil {
			return err
		}
		name, err := repo.Save(ctx, model)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "model stored as %s\n", name)
	}

	if o.trialLog != "" {
		log := report.NewTrialLog(o.trialLog)
		if err := log.WriteMarker("Random Forest"); err != nil {
			return err
		}
		if err := log.WriteReport("Training file "+o.input+"\n", summary); err != nil {
			return err
		}
	}
	return nil
}

func readLabeled(path, label string, meta, labels []string) (*tabular.Labeled, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tabular.ReadLabeled(f, label, meta, labels)
}

// saveModelFile 保存模型，并在旁边写出标签名与特征名，供预测与影响力报告使用。
func saveModelFile(path string, model *forest.Forest, training *tabular.Labeled) error {
	if err := model.Save(path); err != nil {
		return err
	}
	if err := writeLines(path+".labels", training.Labels); err != nil {
		return err
	}
	return writeLines(path+".features", training.Features)
}

func writeLines(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// readLines 按行读取名称，名称中可以包含空格。
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\r\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, nil
}
