package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/setview/pkg/model"
)

// LogWriter appends records to a log file.
type LogWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *cbor.Encoder
	n   int
}

func CreateLogFile(path string) (*LogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &LogWriter{
		f:   f,
		buf: buf,
		enc: cbor.NewEncoder(buf),
	}, nil
}

func (w *LogWriter) Path() string {
	return w.f.Name()
}

// Len returns the number of records written.
func (w *LogWriter) Len() int {
	return w.n
}

func (w *LogWriter) Write(r model.LogRecord) error {
	err := w.enc.Encode(r)
	if err != nil {
		return fmt.Errorf("failed to write log record to %q: %w", w.f.Name(), err)
	}
	w.n++
	return nil
}

// Close flushes and syncs the file.
func (w *LogWriter) Close() error {
	err := w.buf.Flush()
	if err != nil {
		w.f.Close()
		return err
	}
	err = w.f.Sync()
	if err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// WriteLogFile writes the records into a new log file.
func WriteLogFile(path string, records []model.LogRecord) error {
	w, err := CreateLogFile(path)
	if err != nil {
		return err
	}
	for _, r := range records {
		err := w.Write(r)
		if err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadLogFile calls fn for every record of the log file in file order.
func ReadLogFile(path string, fn func(model.LogRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := cbor.NewDecoder(bufio.NewReader(f))
	for {
		var r model.LogRecord
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read log file %q: %w", path, err)
		}
		err = fn(r)
		if err != nil {
			return err
		}
	}
}

// LoadLogFile reads all records of a log file.
func LoadLogFile(path string) ([]model.LogRecord, error) {
	var records []model.LogRecord
	err := ReadLogFile(path, func(r model.LogRecord) error {
		records = append(records, r)
		return nil
	})
	return records, err
}
