package report

import (
	"fmt"
	"os"
	"time"
)

const (
	// TrialSectionMarker 分隔试验日志中的各段报告。
	TrialSectionMarker = "******************************************************************"
	// JobStartMarker 标记一次任务的开始。
	JobStartMarker = "##################################################################"
)

// TrialLog 以追加方式写入试验日志文件。
type TrialLog struct {
	Path string
	now  func() time.Time
}

// NewTrialLog 创建指向 path 的试验日志。
func NewTrialLog(path string) *TrialLog {
	return &TrialLog{Path: path, now: time.Now}
}

// WriteMarker 写入任务开始标记与时间。
func (l *TrialLog) WriteMarker(kind string) error {
	return l.appendText(fmt.Sprintf("%s\n%s job at %s.\n\n", JobStartMarker, kind, l.now().Format(time.RFC3339)))
}

// WriteReport 写入一段报告，label 为空时省略标题。
func (l *TrialLog) WriteReport(label, text string) error {
	body := TrialSectionMarker + "\n"
	if label != "" {
		body += label
	}
	return l.appendText(body + text + "\n")
}

func (l *TrialLog) appendText(s string) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trial log: %w", err)
	}
	if _, err := f.WriteString(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("write trial log: %w", err)
	}
	return f.Close()
}
