// Package tabular 读写制表符分隔的数据文件。
//
// 读取基于 gota 的 DataFrame，所有列先按字符串读入，再按需转换为数值矩阵。
package tabular

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/xerrors"
)

// Table 是读入内存的一张带表头的表。
type Table struct {
	df dataframe.DataFrame
}

// ReadTSV 读取带表头的制表符分隔数据。
// 数据行字段数与表头不一致时返回 xerrors.ErrShapeMismatch。
func ReadTSV(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		if strings.Contains(df.Err.Error(), "empty DataFrame") {
			return nil, xerrors.Wrap(df.Err, xerrors.ErrEmptyData, "read tab-delimited data")
		}
		return nil, xerrors.Wrap(df.Err, xerrors.ErrShapeMismatch, "read tab-delimited data")
	}
	return &Table{df: df}, nil
}

// Headers 返回列名。
func (t *Table) Headers() []string {
	return t.df.Names()
}

// Rows 返回数据行数。
func (t *Table) Rows() int {
	return t.df.Nrow()
}

func (t *Table) index(name string) (int, error) {
	i := slices.Index(t.df.Names(), name)
	if i < 0 {
		return -1, xerrors.Derive(xerrors.ErrLabelNotFound, "column %q not found in headers", name)
	}
	return i, nil
}

// Column 返回指定列的全部取值。
func (t *Table) Column(name string) ([]string, error) {
	if _, err := t.index(name); err != nil {
		return nil, err
	}
	return t.df.Col(name).Records(), nil
}

// Matrix 将指定列按顺序转换为 rows × len(cols) 的数值矩阵。
func (t *Table) Matrix(cols []string) (*mat.Dense, error) {
	rows := t.df.Nrow()
	if rows == 0 || len(cols) == 0 {
		return &mat.Dense{}, nil
	}
	m := mat.NewDense(rows, len(cols), nil)
	for c, name := range cols {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		for r, v := range values {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, xerrors.Wrap(err, xerrors.ErrBadValue, fmt.Sprintf("row %d column %q", r+1, name))
			}
			m.Set(r, c, f)
		}
	}
	return m, nil
}

// FeatureColumns 返回除 exclude 之外的全部列，保持表头顺序。
func (t *Table) FeatureColumns(exclude ...string) []string {
	var cols []string
	for _, name := range t.df.Names() {
		if !slices.Contains(exclude, name) {
			cols = append(cols, name)
		}
	}
	return cols
}

// Labeled 是从表中读出的训练或测试数据。
type Labeled struct {
	Data     *dataset.Dataset
	Features []string // 特征列名，与 Data 的列一一对应。
	Labels   []string // 标签名，下标即类别编号。
}

// ReadLabeled 读取带标签的数据。labelCol 为标签列，metaCols 中的列既不是特征也不是标签。
//
// labels 为空时按字典序收集标签列中出现的全部取值；否则标签列中的每个取值都必须出现在
// labels 中，否则返回 xerrors.ErrLabelNotFound。
func ReadLabeled(r io.Reader, labelCol string, metaCols, labels []string) (*Labeled, error) {
	t, err := ReadTSV(r)
	if err != nil {
		return nil, err
	}
	raw, err := t.Column(labelCol)
	if err != nil {
		return nil, err
	}
	for _, m := range metaCols {
		if _, err := t.index(m); err != nil {
			return nil, err
		}
	}
	if len(labels) == 0 {
		labels = slices.Sorted(slices.Values(unique(raw)))
	}
	if len(labels) == 0 {
		return nil, xerrors.Derive(xerrors.ErrEmptyData, "no data rows")
	}

	classOf := make(map[string]int, len(labels))
	for i, l := range labels {
		classOf[l] = i
	}
	classes := make([]int, len(raw))
	for i, v := range raw {
		c, ok := classOf[v]
		if !ok {
			return nil, xerrors.Derive(xerrors.ErrLabelNotFound, "row %d has undeclared label %q", i+1, v)
		}
		classes[i] = c
	}

	cols := t.FeatureColumns(append([]string{labelCol}, metaCols...)...)
	features, err := t.Matrix(cols)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.FromClasses(features, classes, len(labels))
	if err != nil {
		return nil, err
	}
	return &Labeled{Data: ds, Features: cols, Labels: labels}, nil
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Batch 是一批待预测的样本。
type Batch struct {
	Meta     []string   // 每行元数据列以制表符拼接后的文本。
	Features *mat.Dense // 特征矩阵。
}

// ReadBatches 读取待预测的数据并按 size 行分批。metaCols 之外的列全部作为特征。
func ReadBatches(r io.Reader, metaCols []string, size int) ([]Batch, error) {
	t, err := ReadTSV(r)
	if err != nil {
		return nil, err
	}
	meta := make([][]string, len(metaCols))
	for i, name := range metaCols {
		if meta[i], err = t.Column(name); err != nil {
			return nil, err
		}
	}
	cols := t.FeatureColumns(metaCols...)
	if len(cols) == 0 {
		return nil, xerrors.Derive(xerrors.ErrEmptyData, "no feature columns")
	}
	features, err := t.Matrix(cols)
	if err != nil {
		return nil, err
	}
	rows := t.Rows()
	if size <= 0 {
		size = max(rows, 1)
	}

	var batches []Batch
	for from := 0; from < rows; from += size {
		to := min(from+size, rows)
		b := Batch{Meta: make([]string, 0, to-from)}
		for r := from; r < to; r++ {
			fields := make([]string, len(metaCols))
			for i := range metaCols {
				fields[i] = meta[i][r]
			}
			b.Meta = append(b.Meta, strings.Join(fields, "\t"))
		}
		b.Features = mat.DenseCopyOf(features.Slice(from, to, 0, len(cols)))
		batches = append(batches, b)
	}
	return batches, nil
}

// PredictionWriter 写出预测结果：元数据列之后跟一列 predicted。
type PredictionWriter struct {
	w io.Writer
}

// NewPredictionWriter 写出表头并返回写入器。
func NewPredictionWriter(w io.Writer, metaCols []string) (*PredictionWriter, error) {
	header := append(slices.Clone(metaCols), "predicted")
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return nil, err
	}
	return &PredictionWriter{w: w}, nil
}

// Write 写出一行预测。
func (p *PredictionWriter) Write(meta, predicted string) error {
	var err error
	if meta == "" {
		_, err = fmt.Fprintln(p.w, predicted)
	} else {
		_, err = fmt.Fprintf(p.w, "%s\t%s\n", meta, predicted)
	}
	return err
}
