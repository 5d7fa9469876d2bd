package forest

import (
	"context"
	"io"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/logging"
	"github.com/wyfcoding/randforest/tabular"
	"github.com/wyfcoding/randforest/xerrors"
)

// DefaultBatchSize 是批量预测时每次投票的行数。
const DefaultBatchSize = 1000

// MakePredictions 读取 in 中的样本，写出元数据列与预测的标签名。
//
// metaCols 之外的列全部作为特征，labels 按类别编号给出标签名。返回写出的预测行数。
func (f *Forest) MakePredictions(ctx context.Context, in io.Reader, out io.Writer, metaCols, labels []string, batchSize int) (int, error) {
	if len(labels) < f.numLabels {
		return 0, xerrors.Derive(xerrors.ErrLabelNotFound, "model predicts %d labels, %d names given", f.numLabels, len(labels))
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batches, err := tabular.ReadBatches(in, metaCols, batchSize)
	if err != nil {
		return 0, err
	}
	w, err := tabular.NewPredictionWriter(out, metaCols)
	if err != nil {
		return 0, xerrors.Wrap(err, xerrors.ErrPersistenceIO, "write prediction header")
	}

	written := 0
	for _, b := range batches {
		tally, err := f.Predict(b.Features)
		if err != nil {
			return written, err
		}
		for r, meta := range b.Meta {
			if err := w.Write(meta, labels[dataset.ComputeBest(tally, r)]); err != nil {
				return written, xerrors.Wrap(err, xerrors.ErrPersistenceIO, "write prediction")
			}
			written++
		}
	}
	logging.Info(ctx, "predictions written", "rows", written, "batches", len(batches))
	return written, nil
}
