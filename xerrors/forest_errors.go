package xerrors

var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "input data must not be empty", nil)
	// ErrDimMismatch 维度不匹配。
	ErrDimMismatch = New(ErrInvalidArg, 400002, "dimension mismatch", "matrix or vector dimensions do not match", nil)
	// ErrLabelNotFound 标签列不存在于表头中。
	ErrLabelNotFound = New(ErrInvalidArg, 400003, "label not found", "requested label column or value is not declared", nil)
	// ErrInvalidMethod 未知的采样方式。
	ErrInvalidMethod = New(ErrInvalidArg, 400004, "invalid sampling method", "supported methods: BALANCED, UNIQUE, RANDOM", nil)
	// ErrFactoryExhausted 特征选择器工厂数量不足。
	ErrFactoryExhausted = New(ErrInvalidArg, 400005, "feature selector factories exhausted", "iterator produced fewer factories than trees", nil)
	// ErrShapeMismatch 数据行宽度与表头不一致。
	ErrShapeMismatch = New(ErrShape, 422001, "shape mismatch", "row width does not match the declared headers", nil)
	// ErrBadValue 数值字段无法解析。
	ErrBadValue = New(ErrShape, 422002, "bad numeric value", "feature columns must be real numbers", nil)
	// ErrModelNotFound 模型不存在。
	ErrModelNotFound = New(ErrNotFound, 404001, "model not found", "no stored model with this name", nil)
	// ErrTreeBuild 单棵决策树构建失败，整片森林随之中止。
	ErrTreeBuild = New(ErrConstruction, 500001, "tree construction failed", "forest build aborted", nil)
	// ErrModelFormat 模型数据损坏或不是森林模型。
	ErrModelFormat = New(ErrPersistence, 500002, "invalid model format", "blob is corrupt or not a random forest", nil)
	// ErrModelVersion 模型版本不兼容。
	ErrModelVersion = New(ErrPersistence, 500003, "incompatible model version", "blob was written by an unsupported format version", nil)
)

// ErrPersistenceIO 读写模型时的底层 I/O 失败。
var ErrPersistenceIO = New(ErrPersistence, 500004, "model i/o failed", "could not read or write model data", nil)
