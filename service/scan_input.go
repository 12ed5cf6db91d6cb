package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

// ScanInputPreparerImpl implements domain.ScanInputPreparer
type ScanInputPreparerImpl struct{}

// NewScanInputPreparer creates a new scan input preparer
func NewScanInputPreparer() *ScanInputPreparerImpl {
	return &ScanInputPreparerImpl{}
}

// Select resolves the files of a quick scan
func (p *ScanInputPreparerImpl) Select(req domain.ScanRequest) (*domain.ScanSelection, error) {
	return SelectScanPaths(req)
}

// WriteInput writes the quick scan input file into dir
func (p *ScanInputPreparerImpl) WriteInput(dir, label string, paths []string) (string, error) {
	return WriteQuickScanInput(dir, label, paths)
}

// SelectScanPaths resolves which files a quick scan covers. Without a file
// list and without filters the whole tree is scanned. A file list whose
// entries are all missing is an input error.
func SelectScanPaths(req domain.ScanRequest) (*domain.ScanSelection, error) {
	filter, err := NewPathFilter(req.WhitePaths, req.IgnorePaths, req.IgnoreFile)
	if err != nil {
		return nil, err
	}

	if req.FromFile == "" && !filter.Active() {
		return &domain.ScanSelection{WholeTree: true}, nil
	}

	var paths []string
	if req.FromFile != "" {
		paths, err = ReadFileList(resolveAgainst(req.Workspace, req.FromFile), req.SourceDir)
		if err != nil {
			return nil, err
		}
	} else {
		paths, err = CollectFiles(req.SourceDir)
		if err != nil {
			return nil, err
		}
	}

	if filter.Active() {
		paths = filter.IncludeFiles(paths, req.SourceDir)
	}
	if len(paths) == 0 {
		log.Infof("no files left to scan after filtering, skipping scan")
	}
	return &domain.ScanSelection{Paths: paths}, nil
}

// ReadFileList reads one relative path per line. Entries missing under
// sourceDir are skipped with a warning.
func ReadFileList(listPath, sourceDir string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewFileNotFoundError(listPath, err)
		}
		return nil, domain.NewInvalidInputError("failed to read file list", err)
	}
	defer file.Close()

	var paths []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		rel := strings.TrimSpace(scanner.Text())
		if rel == "" {
			continue
		}
		full := filepath.Join(sourceDir, rel)
		if _, err := os.Stat(full); err != nil {
			log.Warnf("file(%s) not found: %s", rel, full)
			continue
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewInvalidInputError("failed to read file list", err)
	}

	if len(paths) == 0 {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("file list %s contains no file to scan", listPath), nil)
	}
	return paths, nil
}

// quickScanInput is the document read by the client through TCA_QUICK_SCAN_INPUT
type quickScanInput struct {
	Labels   []string        `json:"labels"`
	ScanPath []quickScanPath `json:"scan_path"`
}

type quickScanPath struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// WriteQuickScanInput writes the quick scan input file into dir and returns
// its path. label may hold several labels separated by ',' or ';'.
func WriteQuickScanInput(dir, label string, paths []string) (string, error) {
	input := quickScanInput{
		Labels:   config.SplitList(label),
		ScanPath: make([]quickScanPath, 0, len(paths)),
	}
	for _, p := range paths {
		input.ScanPath = append(input.ScanPath, quickScanPath{Path: p, Type: "file"})
	}

	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", domain.NewOutputError("failed to encode quick scan input", err)
	}
	path := filepath.Join(dir, constants.QuickScanInputFileName)
	if err := writeFileAtomic(path, data); err != nil {
		return "", domain.NewOutputError("failed to write quick scan input", err)
	}
	return path, nil
}

func resolveAgainst(base, path string) string {
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

var _ domain.ScanInputPreparer = (*ScanInputPreparerImpl)(nil)
