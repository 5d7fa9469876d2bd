package tabular

import (
	"bufio"
	"cmp"
	"io"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/wyfcoding/randforest/xerrors"
)

// continuousClasses 是连续标签合并成的区间类别数。
const continuousClasses = 10

// Mode 决定如何由标签列得到类别。
type Mode int

const (
	// Discrete 以标签原值为类别。
	Discrete Mode = iota
	// Continuous 将数值标签排序后合并为约 10 个取值区间。
	Continuous
)

// Distributor 缓冲全部数据行，按标签类别打散后写出，使每个类别尽量均匀地分布在输出中。
//
// 可选的平衡比例限制每个类别的大小：比例为 2 表示任何类别不超过最小类别的两倍，0 表示不限制。
type Distributor struct {
	w        io.Writer
	mode     Mode
	header   string
	width    int
	labelIdx int
	balance  float64
	rng      *rand.Rand
	lines    map[string][]string
	numeric  map[float64][]string
	count    int
}

// NewDistributor 创建分布写出器。label 必须出现在 headers 中，否则返回 xerrors.ErrLabelNotFound。
func NewDistributor(w io.Writer, mode Mode, label string, headers []string, seed uint64) (*Distributor, error) {
	idx := slices.Index(headers, label)
	if idx < 0 {
		return nil, xerrors.Derive(xerrors.ErrLabelNotFound, "label column %q not found in headers", label)
	}
	return &Distributor{
		w:        w,
		mode:     mode,
		header:   strings.Join(headers, "\t"),
		width:    len(headers),
		labelIdx: idx,
		//nolint:gosec // 打散顺序只要求可复现.
		rng:     rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
		lines:   make(map[string][]string),
		numeric: make(map[float64][]string),
	}, nil
}

// SetBalanced 设置平衡比例，0 表示不平衡。
func (d *Distributor) SetBalanced(ratio float64) {
	d.balance = ratio
}

// Write 缓冲一行数据。字段数与表头不一致时返回 xerrors.ErrShapeMismatch。
func (d *Distributor) Write(fields []string) error {
	if len(fields) != d.width {
		first := ""
		if len(fields) > 0 {
			first = fields[0]
		}
		return xerrors.Derive(xerrors.ErrShapeMismatch, "line beginning with %q has %d fields, expected %d", first, len(fields), d.width)
	}
	label := fields[d.labelIdx]
	line := strings.Join(fields, "\t")
	switch d.mode {
	case Continuous:
		v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
		if err != nil {
			return xerrors.Wrap(err, xerrors.ErrBadValue, "continuous label "+strconv.Quote(label))
		}
		if math.IsNaN(v) {
			return xerrors.Derive(xerrors.ErrBadValue, "continuous label %q is not a number", label)
		}
		d.numeric[v] = append(d.numeric[v], line)
	default:
		d.lines[label] = append(d.lines[label], line)
	}
	d.count++
	return nil
}

// Count 返回已缓冲的数据行数。
func (d *Distributor) Count() int {
	return d.count
}

// Close 写出表头与全部缓冲的数据行。
func (d *Distributor) Close() error {
	bw := bufio.NewWriter(d.w)
	if _, err := bw.WriteString(d.header + "\n"); err != nil {
		return err
	}
	for _, line := range d.arrange() {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// arrange 返回最终的输出顺序。
func (d *Distributor) arrange() []string {
	if d.count == 0 {
		return nil
	}
	classes := d.classes()
	for _, c := range classes {
		d.rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	}
	sortBySize(classes)
	if d.balance > 0 {
		limit := int(math.Ceil(float64(len(classes[len(classes)-1])) * d.balance))
		for i := range classes {
			if len(classes[i]) > limit {
				classes[i] = classes[i][:limit]
			}
		}
		sortBySize(classes)
	}
	return interleave(classes)
}

// classes 按类别键排序后返回各类别的数据行，保证同一种子下结果可复现。
func (d *Distributor) classes() [][]string {
	if d.mode != Continuous {
		keys := slices.Sorted(maps.Keys(d.lines))
		out := make([][]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, d.lines[k])
		}
		return out
	}

	values := slices.Sorted(maps.Keys(d.numeric))
	size := d.count/continuousClasses + 1
	var out [][]string
	var current []string
	for _, v := range values {
		if len(current) >= size {
			out = append(out, current)
			current = nil
		}
		current = append(current, d.numeric[v]...)
	}
	return append(out, current)
}

// sortBySize 按大小从大到小排序，大小相同时按内容排序。
func sortBySize(classes [][]string) {
	slices.SortStableFunc(classes, func(a, b []string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})
}

// interleave 以最小类别的大小为槽数，把各类别的数据行轮流放入各槽，再按槽顺序拼接。
func interleave(classes [][]string) []string {
	slots := len(classes[len(classes)-1])
	buckets := make([][]string, slots)
	total := 0
	i := 0
	for _, c := range classes {
		for _, line := range c {
			buckets[i] = append(buckets[i], line)
			i = (i + 1) % slots
		}
		total += len(c)
	}
	out := make([]string, 0, total)
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}
