package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

const (
	FORMAT_CSV  = "csv"
	FORMAT_JSON = "json"
)

type SubmissionExporter struct {
	parser    *SubmissionParser
	writer    io.Writer
	csvWriter *csv.Writer
	format    string
	counter   int
}

func NewSubmissionExporter(
	parser *SubmissionParser,
	writer io.Writer,
	format string,
) (*SubmissionExporter, error) {
	se := &SubmissionExporter{
		parser: parser,
		writer: writer,
		format: format,
	}

	if err := se.init(); err != nil {
		return nil, err
	}
	return se, nil
}

func (se *SubmissionExporter) init() error {
	var err error
	switch se.format {
	case FORMAT_CSV:
		se.csvWriter = csv.NewWriter(se.writer)
		err = se.csvWriter.Write(se.parser.Columns())
	case FORMAT_JSON:
		_, err = se.writer.Write([]byte("{\"submissions\":["))
	default:
		return fmt.Errorf("unsupported format: %s", se.format)
	}
	return err
}

func (se *SubmissionExporter) WriteSubmission(submission *types.Submission) error {
	if se.parser == nil {
		return fmt.Errorf("parser not initialized")
	}
	if se.writer == nil {
		return fmt.Errorf("writer not initialized")
	}

	switch se.format {
	case FORMAT_CSV:
		row, err := se.parser.ToRow(submission)
		if err != nil {
			return err
		}
		if err := se.csvWriter.Write(row); err != nil {
			return err
		}
	case FORMAT_JSON:
		record, err := se.parser.ToRecord(submission)
		if err != nil {
			return err
		}
		rV, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if se.counter > 0 {
			if _, err := se.writer.Write([]byte(",")); err != nil {
				return err
			}
		}
		if _, err := se.writer.Write(rV); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", se.format)
	}

	se.counter += 1
	return nil
}

func (se *SubmissionExporter) Finish() error {
	switch se.format {
	case FORMAT_CSV:
		se.csvWriter.Flush()
		return se.csvWriter.Error()
	case FORMAT_JSON:
		_, err := se.writer.Write([]byte("]}"))
		return err
	default:
		return fmt.Errorf("unsupported format: %s", se.format)
	}
}

// Count is the number of submissions written so far.
func (se *SubmissionExporter) Count() int {
	return se.counter
}

// Export renders all submissions of the collection into one CSV or JSON document.
func Export(collection *types.Collection, submissions []*types.Submission, format string) ([]byte, error) {
	parser, err := NewSubmissionParser(collection)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	se, err := NewSubmissionExporter(parser, buf, format)
	if err != nil {
		return nil, err
	}
	for _, s := range submissions {
		if err := se.WriteSubmission(s); err != nil {
			return nil, fmt.Errorf("submission %s: %w", s.ID.Hex(), err)
		}
	}
	if err := se.Finish(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
