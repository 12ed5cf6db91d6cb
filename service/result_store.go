package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
)

// ResultStoreImpl reads client result files and writes the final report
type ResultStoreImpl struct{}

// NewResultStore creates a new result store
func NewResultStore() *ResultStoreImpl {
	return &ResultStoreImpl{}
}

// ReadRawResult reads the client's scan_status.json. Numbers are kept as
// json.Number so integer metrics are never routed through float64.
func (s *ResultStoreImpl) ReadRawResult(path string) (*domain.RawScanResult, error) {
	var raw domain.RawScanResult
	if err := decodeJSONFile(path, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// ReadQuickScanReport reads the quick scan report. A missing error_code is
// treated as 0 and a missing issue_count stays nil.
func (s *ResultStoreImpl) ReadQuickScanReport(path string) (*domain.QuickScanReport, error) {
	fields := make(map[string]interface{})
	if err := decodeJSONFile(path, &fields); err != nil {
		return nil, err
	}

	report := &domain.QuickScanReport{Fields: fields}
	if v, ok := fields["error_code"]; ok && v != nil {
		code, err := jsonInt(v)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid error_code in %s", path), err)
		}
		report.ErrorCode = int(code)
	}
	if v, ok := fields["issue_count"]; ok && v != nil {
		count, err := jsonInt(v)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid issue_count in %s", path), err)
		}
		report.IssueCount = &count
	}
	return report, nil
}

// WriteReport writes the report as indented JSON, replacing any previous
// file atomically
func (s *ResultStoreImpl) WriteReport(path string, report *domain.StatusReport) error {
	data, err := report.Marshal()
	if err != nil {
		return domain.NewOutputError("failed to encode report", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write report %s", path), err)
	}
	log.Infof("report written to %s", path)
	return nil
}

func decodeJSONFile(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewFileNotFoundError(path, err)
		}
		return domain.NewInvalidInputError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return domain.NewInvalidInputError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return nil
}

func jsonInt(v interface{}) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("expected an integer, got %s", n)
	}
	return int64(f), nil
}

// writeFileAtomic writes to a temporary file next to path and renames it
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

var _ domain.ResultStore = (*ResultStoreImpl)(nil)
