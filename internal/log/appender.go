package log

import (
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
)

const (
	AppenderStdout = "stdout"
	AppenderFile   = "file"
)

type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// Len returns the number of attached writers.
func (m *MultiWriter) Len() int { return len(m.writers) }

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

// buildOutput attaches one writer per appender. No appenders means stdout only.
func buildOutput(appenders []AppenderConfig, stdout io.Writer) (*MultiWriter, error) {
	out := NewMultiWriter()
	if len(appenders) == 0 {
		return out.Add(stdout), nil
	}
	for i, a := range appenders {
		switch a.Type {
		case AppenderStdout, "":
			out.Add(stdout)
		case AppenderFile:
			var opt FileAppenderOpt
			if err := mapstructure.Decode(a.Options, &opt); err != nil {
				return nil, fmt.Errorf("appender %d: file options: %w", i, err)
			}
			if opt.Filename == "" {
				return nil, fmt.Errorf("appender %d: file appender requires filename", i)
			}
			out.AddFileAppender(opt)
		default:
			return nil, fmt.Errorf("appender %d: unknown type %q", i, a.Type)
		}
	}
	return out, nil
}
