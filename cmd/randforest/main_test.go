package main

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/randforest/xerrors"
)

// writeTSV 写出一个第一列决定标签的数据文件。
func writeTSV(t *testing.T, path string, rows int, seed uint64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 3))
	var b strings.Builder
	b.WriteString("id\tx0\tx1\tclass\n")
	for r := range rows {
		x0, x1 := rng.Float64(), rng.Float64()
		class := "low"
		if x0 > 0.5 {
			class = "high"
		}
		fmt.Fprintf(&b, "r%d\t%.4f\t%.4f\t%s\n", r, x0, x1, class)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainPredictImpact(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.tsv")
	test := filepath.Join(dir, "test.tsv")
	model := filepath.Join(dir, "model.rf")
	trial := filepath.Join(dir, "trial.log")
	writeTSV(t, train, 300, 1)
	writeTSV(t, test, 100, 2)

	out, err := run(t, "train", "-i", train, "--test", test, "-l", "class", "--meta", "id",
		"-m", model, "--trees", "15", "--seed", "7", "--workers", "2", "--trial-log", trial)
	require.NoError(t, err)
	assert.Contains(t, out, "ACCURACY")
	assert.Contains(t, out, "model saved to")

	labels, err := readLines(model + ".labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low"}, labels)
	features, err := readLines(model + ".features")
	require.NoError(t, err)
	assert.Equal(t, []string{"x0", "x1"}, features)

	log, err := os.ReadFile(trial)
	require.NoError(t, err)
	assert.Contains(t, string(log), "Random Forest job at")
	assert.Contains(t, string(log), "Training file "+train)

	predictions := filepath.Join(dir, "pred.tsv")
	_, err = run(t, "predict", "-m", model, "-i", test, "-o", predictions, "--meta", "id", "--batch", "30")
	require.NoError(t, err)
	data, err := os.ReadFile(predictions)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 101)
	assert.Equal(t, "id\tpredicted", lines[0])

	out, err = run(t, "impact", "-m", model)
	require.NoError(t, err)
	first := strings.SplitN(out, "\n", 2)[0]
	assert.True(t, strings.HasPrefix(first, "x0\t"), "x0 carries the signal, got %q", first)
}

func TestTrainRejectsUnknownLabel(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.tsv")
	writeTSV(t, train, 20, 1)

	_, err := run(t, "train", "-i", train, "-l", "missing", "-m", filepath.Join(dir, "m.rf"))
	assert.ErrorIs(t, err, xerrors.ErrLabelNotFound)
}

func TestTrainRequiresDestination(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.tsv")
	writeTSV(t, train, 20, 1)

	_, err := run(t, "train", "-i", train, "-l", "class")
	assert.Error(t, err)
}

func TestDistribute(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.tsv")
	out := filepath.Join(dir, "out.tsv")
	var b strings.Builder
	b.WriteString("name\tclass\n")
	for i := range 12 {
		class := "a"
		if i%4 == 0 {
			class = "b"
		}
		fmt.Fprintf(&b, "n%d\t%s\n", i, class)
	}
	require.NoError(t, os.WriteFile(in, []byte(b.String()), 0o644))

	_, err := run(t, "distribute", "-i", in, "-o", out, "-l", "class", "--balance", "1", "--seed", "3")
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "name\tclass", lines[0])
	// 平衡比例为 1 时两个类别各保留 3 行并交替出现。
	require.Len(t, lines, 7)
	var a, bb int
	for _, l := range lines[1:] {
		if strings.HasSuffix(l, "\ta") {
			a++
		} else {
			bb++
		}
	}
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, bb)

	_, err = run(t, "distribute", "-i", in, "-o", out, "-l", "nope")
	assert.ErrorIs(t, err, xerrors.ErrLabelNotFound)
}

func TestTrainKeepsNamesWithSpaces(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.tsv")
	model := filepath.Join(dir, "model.rf")
	rng := rand.New(rand.NewPCG(5, 3))
	var b strings.Builder
	b.WriteString("id\tfeature one\tfeature two\tclass name\n")
	for r := range 200 {
		x0, x1 := rng.Float64(), rng.Float64()
		class := "Class B"
		if x0 > 0.5 {
			class = "Class A"
		}
		fmt.Fprintf(&b, "r%d\t%.4f\t%.4f\t%s\n", r, x0, x1, class)
	}
	require.NoError(t, os.WriteFile(train, []byte(b.String()), 0o644))

	_, err := run(t, "train", "-i", train, "-l", "class name", "--meta", "id", "-m", model, "--trees", "10", "--seed", "11")
	require.NoError(t, err)

	labels, err := readLines(model + ".labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"Class A", "Class B"}, labels)
	features, err := readLines(model + ".features")
	require.NoError(t, err)
	assert.Equal(t, []string{"feature one", "feature two"}, features)

	predictions := filepath.Join(dir, "pred.tsv")
	_, err = run(t, "predict", "-m", model, "-i", train, "-o", predictions, "--meta", "id")
	require.NoError(t, err)
	data, err := os.ReadFile(predictions)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 201)
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 2)
		assert.Contains(t, []string{"Class A", "Class B"}, fields[1])
	}

	out, err := run(t, "impact", "-m", model)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "feature one\t"), "got %q", out)
}

func TestReadLinesKeepsSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names")
	require.NoError(t, writeLines(path, []string{"Class A", "Class B"}))
	got, err := readLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Class A", "Class B"}, got)

	require.NoError(t, os.WriteFile(path, []byte("x y\r\nz\r\n"), 0o644))
	got, err = readLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x y", "z"}, got)
}
