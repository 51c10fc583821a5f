package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-sql/civil"
)

type LogRecord map[string]any

// logFileWriter buffers json records and appends them to the newest log file of the day
type logFileWriter struct {
	sync.Mutex
	stack   []LogRecord
	folder  string
	maxSize int64
}

func newLogFileWriter(logDir string, maxSize int64) *logFileWriter {
	return &logFileWriter{
		folder:  logDir,
		maxSize: maxSize,
	}
}

func (esw *logFileWriter) Write(b []byte) (int, error) {
	record := LogRecord{}
	if err := json.Unmarshal(b, &record); err != nil {
		return 0, err
	}
	esw.Lock()
	defer esw.Unlock()
	esw.stack = append(esw.stack, record)
	if len(esw.stack) >= MaxStackSize {
		if err := esw.flush(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (esw *logFileWriter) Flush() error {
	esw.Lock()
	defer esw.Unlock()
	return esw.flush()
}

// pending returns a copy of the records not yet written to disk
func (esw *logFileWriter) pending() []LogRecord {
	esw.Lock()
	defer esw.Unlock()
	return append([]LogRecord(nil), esw.stack...)
}

// flush appends esw.stack to the current file and resets the stack
func (esw *logFileWriter) flush() error {
	if len(esw.stack) == 0 {
		return nil
	}
	if err := os.MkdirAll(esw.folder, 0o700); err != nil {
		return err
	}
	lf, err := esw.findLatestFile()
	if err != nil {
		return err
	}
	defer lf.Close()

	prevLogs := make([]LogRecord, 0)
	content, err := io.ReadAll(lf)
	if err != nil {
		return err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &prevLogs); err != nil {
			return err
		}
	}
	prevLogs = append(prevLogs, esw.stack...)
	stack, err := json.Marshal(prevLogs)
	if err != nil {
		return err
	}
	if err := lf.Truncate(0); err != nil {
		return err
	}
	if _, err := lf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := lf.Write(stack); err != nil {
		return err
	}
	esw.stack = esw.stack[:0]
	return nil
}

// findLatestFile opens today's newest file, or starts a new one when it has outgrown maxSize
func (esw *logFileWriter) findLatestFile() (*os.File, error) {
	today := civil.DateOf(time.Now()).String()
	entries, err := fs.Glob(os.DirFS(esw.folder), today+"_*.log.json")
	if err != nil {
		return nil, err
	}
	name := logFileName(today, 0)
	if len(entries) > 0 {
		latest := logFileName(today, len(entries)-1)
		finfo, err := os.Stat(filepath.Join(esw.folder, latest))
		if err != nil {
			return nil, err
		}
		name = latest
		if finfo.Size() >= esw.maxSize {
			name = logFileName(today, len(entries))
		}
	}
	return os.OpenFile(filepath.Join(esw.folder, name), os.O_CREATE|os.O_RDWR, 0o644)
}

func logFileName(date string, seq int) string {
	return fmt.Sprintf("%s_%d.log.json", date, seq)
}
