package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/randforest/forest"
)

type predictOptions struct {
	model  string
	name   string
	input  string
	output string
	meta   []string
	labels []string
	batch  int
}

func newPredictCmd(a *app) *cobra.Command {
	o := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict labels for every row of a tab-delimited file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.predict(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.model, "model", "m", "", "model file")
	f.StringVar(&o.name, "name", "", "model name in the configured model repository")
	f.StringVarP(&o.input, "input", "i", "", "input file (tab-delimited, with headers)")
	f.StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	f.StringSliceVar(&o.meta, "meta", nil, "metadata columns copied to the output")
	f.StringSliceVar(&o.labels, "labels", nil, "label names in class order (default: read from <model>.labels)")
	f.IntVar(&o.batch, "batch", forest.DefaultBatchSize, "rows voted on per batch")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) predict(cmd *cobra.Command, o *predictOptions) error {
	ctx := cmd.Context()
	model, labels, err := a.openModel(cmd, o.model, o.name, o.labels)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("label names are required: pass --labels")
	}

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

	n, err := model.MakePredictions(ctx, in, out, o.meta, labels, o.batch)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "prediction complete", "rows", n, "output", o.output)
	return nil
}

// openModel 从文件或模型仓库加载模型。未显式给出标签名时读取模型旁的 .labels 文件。
func (a *app) openModel(cmd *cobra.Command, path, name string, labels []string) (*forest.Forest, []string, error) {
	switch {
	case path != "":
		model, err := forest.Load(path)
		if err != nil {
			return nil, nil, err
		}
		if len(labels) == 0 {
			if labels, err = readLines(path + ".labels"); err != nil && !os.IsNotExist(err) {
				return nil, nil, err
			}
		}
		return model, labels, nil
	case name != "":
		repo, err := a.repository()
		if err != nil {
			return nil, nil, err
		}
		model, err := repo.Load(cmd.Context(), name)
		return model, labels, err
	default:
		return nil, nil, fmt.Errorf("one of --model or --name is required")
	}
}
