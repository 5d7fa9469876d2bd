package forest

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/wyfcoding/randforest/tree"
	"github.com/wyfcoding/randforest/xerrors"
)

// 模型文件格式：4 字节魔数 "RFST"，2 字节大端格式版本号，随后是 zstd 压缩的 gob 快照。
const (
	modelMagic    = "RFST"
	FormatVersion = uint16(1)
	headerSize    = len(modelMagic) + 2
)

// snapshot 是森林持久化的全部内容。超参数与构建期的临时状态不会保存。
type snapshot struct {
	NumLabels int
	NumInputs int
	Trees     []tree.Snapshot
}

// Encode 将森林写入 w。
func Encode(w io.Writer, f *Forest) error {
	var header [headerSize]byte
	copy(header[:], modelMagic)
	binary.BigEndian.PutUint16(header[len(modelMagic):], FormatVersion)
	if _, err := w.Write(header[:]); err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "write model header")
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "create compressor")
	}
	snap := snapshot{NumLabels: f.numLabels, NumInputs: f.numInputs, Trees: make([]tree.Snapshot, len(f.trees))}
	for i, t := range f.trees {
		snap.Trees[i] = t.Snapshot()
	}
	if err := gob.NewEncoder(zw).Encode(&snap); err != nil {
		_ = zw.Close()
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "encode model")
	}
	if err := zw.Close(); err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "flush model")
	}
	return nil
}

// Decode 从 r 读取森林。魔数不符或数据损坏时返回 xerrors.ErrModelFormat，
// 版本不兼容时返回 xerrors.ErrModelVersion。
func Decode(r io.Reader) (*Forest, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrModelFormat, "read model header")
	}
	if string(header[:len(modelMagic)]) != modelMagic {
		return nil, xerrors.Derive(xerrors.ErrModelFormat, "bad magic %q", header[:len(modelMagic)])
	}
	if v := binary.BigEndian.Uint16(header[len(modelMagic):]); v != FormatVersion {
		return nil, xerrors.Derive(xerrors.ErrModelVersion, "model format version %d, supported %d", v, FormatVersion)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrModelFormat, "open model stream")
	}
	defer zr.Close()

	var snap snapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrModelFormat, "decode model")
	}
	if snap.NumLabels <= 0 || snap.NumInputs < 0 {
		return nil, xerrors.Derive(xerrors.ErrModelFormat, "invalid model shape: %d labels, %d inputs", snap.NumLabels, snap.NumInputs)
	}

	f := &Forest{numLabels: snap.NumLabels, numInputs: snap.NumInputs, trees: make([]*tree.DecisionTree, len(snap.Trees))}
	for i, s := range snap.Trees {
		t, err := tree.FromSnapshot(s, snap.NumLabels, snap.NumInputs)
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrModelFormat, fmt.Sprintf("tree %d", i))
		}
		f.trees[i] = t
	}
	return f, nil
}

// Save 将森林写入文件。
func (f *Forest) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "create model file")
	}
	bw := bufio.NewWriter(file)
	if err := Encode(bw, f); err != nil {
		_ = file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "flush model file")
	}
	if err := file.Close(); err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "close model file")
	}
	return nil
}

// Load 从文件读取森林。
func Load(path string) (*Forest, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.Wrap(err, xerrors.ErrModelNotFound, path)
	}
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrPersistenceIO, "open model file")
	}
	defer file.Close()
	return Decode(bufio.NewReader(file))
}
