package service

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
)

// PathFilterImpl selects repository-relative paths with include and exclude
// regular expressions and an optional .gitignore-style file. Expressions
// must match the whole '/'-separated path.
type PathFilterImpl struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
	ignored *ignore.GitIgnore
}

// NewPathFilter compiles the filter. An invalid expression list is logged and
// leaves that side of the filter disabled. A missing ignore file is an error.
func NewPathFilter(include, exclude []string, ignoreFile string) (*PathFilterImpl, error) {
	f := &PathFilterImpl{
		include: compilePathRegex(include),
		exclude: compilePathRegex(exclude),
	}
	if ignoreFile != "" {
		gi, err := ignore.CompileIgnoreFile(ignoreFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, domain.NewFileNotFoundError(ignoreFile, err)
			}
			return nil, domain.NewInvalidInputError("failed to read ignore file "+ignoreFile, err)
		}
		f.ignored = gi
	}
	return f, nil
}

// compilePathRegex joins the expressions into one anchored alternation
func compilePathRegex(exprs []string) *regexp.Regexp {
	if len(exprs) == 0 {
		return nil
	}
	re, err := regexp.Compile("^(?:" + strings.Join(exprs, "|") + ")$")
	if err != nil {
		log.Errorf("path filter %v is invalid and will be ignored: %v", exprs, err)
		return nil
	}
	return re
}

// Active reports whether any filter is in effect
func (f *PathFilterImpl) Active() bool {
	return f.include != nil || f.exclude != nil || f.ignored != nil
}

// ShouldFilter reports whether relPath is out of scope. Exclusion wins over
// inclusion.
func (f *PathFilterImpl) ShouldFilter(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if f.exclude != nil && f.exclude.MatchString(relPath) {
		return true
	}
	if f.ignored != nil && f.ignored.MatchesPath(relPath) {
		return true
	}
	if f.include != nil && !f.include.MatchString(relPath) {
		return true
	}
	return false
}

// IncludeFiles returns the paths that exist under rootDir and pass the filter
func (f *PathFilterImpl) IncludeFiles(relPaths []string, rootDir string) []string {
	wanted := make([]string, 0, len(relPaths))
	for _, rel := range relPaths {
		if _, err := os.Stat(filepath.Join(rootDir, rel)); err != nil {
			continue
		}
		if !f.ShouldFilter(rel) {
			wanted = append(wanted, filepath.ToSlash(rel))
		}
	}
	log.Infof("[file count] before filter: %d, after filter: %d", len(relPaths), len(wanted))
	return wanted
}

// CollectFiles lists every regular file below root as a sorted '/'-separated
// relative path. Version control metadata is skipped.
func CollectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, domain.NewInvalidInputError("failed to list source files", err)
	}
	sort.Strings(files)
	return files, nil
}

var _ domain.PathFilter = (*PathFilterImpl)(nil)
