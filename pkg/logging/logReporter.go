package logging

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-sql/civil"
)

// LogReport groups persisted and pending records by the day they were written
type LogReport map[civil.Date][]LogRecord

var ErrNoLogFiles = errors.New("logger has no log directory")

type logReporter struct {
	writer *logFileWriter
}

func newLogReporter(w *logFileWriter) logReporter {
	return logReporter{writer: w}
}

// Records returns the records of today and the previous days; records still buffered are reported under today
func (wpl logReporter) Records(days int) (LogReport, error) {
	if wpl.writer == nil {
		return nil, ErrNoLogFiles
	}
	lr := make(LogReport)
	for d := 0; d <= days; d++ {
		date := civil.DateOf(time.Now().AddDate(0, 0, -d))
		logs, err := fs.Glob(os.DirFS(wpl.writer.folder), date.String()+"_*.log.json")
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			content, err := os.ReadFile(filepath.Join(wpl.writer.folder, log))
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, err
			}
			var records []LogRecord
			if err := json.Unmarshal(content, &records); err != nil {
				return nil, err
			}
			lr[date] = append(lr[date], records...)
		}
	}
	if pending := wpl.writer.pending(); len(pending) > 0 {
		today := civil.DateOf(time.Now())
		lr[today] = append(lr[today], pending...)
	}
	return lr, nil
}
