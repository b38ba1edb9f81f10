package repo

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/pkg/apk"
	"github.com/huanfeng/apkparse/pkg/models"
	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/huanfeng/apkparse/pkg/utils"
)

// Scanner parses every archive found in a directory tree.
type Scanner struct {
	config       models.ScanningConfig
	parser       *apk.Parser
	collectCerts bool
	logger       utils.Logger
	progress     io.Writer
}

// NewScanner creates a new scanner instance
func NewScanner(config models.ScanningConfig, parser *apk.Parser, collectCerts bool, logger utils.Logger) *Scanner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Scanner{
		config:       config,
		parser:       parser,
		collectCerts: collectCerts,
		logger:       logger,
	}
}

// SetProgressOutput enables a progress bar on w.
func (s *Scanner) SetProgressOutput(w io.Writer) {
	s.progress = w
}

// ScanResult is the outcome for one archive.
type ScanResult struct {
	Path    string      `json:"path"`
	Package *pm.Package `json:"-"`
	Status  pm.Status   `json:"status"`
	// Skipped marks the benign core-apps skip.
	Skipped bool  `json:"skipped,omitempty"`
	Err     error `json:"-"`
}

// OK reports whether the archive parsed into a package.
func (r ScanResult) OK() bool {
	return r.Err == nil && r.Package != nil
}

// ScanReport collects the results of a scan, ordered by path.
type ScanReport struct {
	Results []ScanResult
	Counts  utils.ScanCounts
	Errors  apkerrors.ErrorStats
}

// Packages returns the successfully parsed packages.
func (r *ScanReport) Packages() []*pm.Package {
	var pkgs []*pm.Package
	for _, res := range r.Results {
		if res.OK() {
			pkgs = append(pkgs, res.Package)
		}
	}
	return pkgs
}

// Discover lists the archives under directory that match the configured
// patterns, sorted by path.
func (s *Scanner) Discover(directory string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Error accessing %s: %v", path, err)
			return nil
		}

		if d.IsDir() {
			if !s.config.Recursive && path != directory {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.config.FollowSymlinks {
				return nil
			}
			fi, err := os.Stat(path)
			if err != nil || !fi.Mode().IsRegular() {
				return nil
			}
		}

		if s.matchesPattern(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// matchesPattern checks if file matches include/exclude patterns
func (s *Scanner) matchesPattern(path string) bool {
	filename := filepath.Base(path)

	for _, pattern := range s.config.ExcludePattern {
		if matched, _ := filepath.Match(pattern, filename); matched {
			return false
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return false
		}
	}

	for _, pattern := range s.config.IncludePattern {
		if matched, _ := filepath.Match(pattern, filename); matched {
			return true
		}
	}
	return false
}

// Scan parses every archive under directory with at most config.Workers
// parses in flight. Per-archive failures are recorded in the report; only
// walk errors and cancellation fail the scan.
func (s *Scanner) Scan(ctx context.Context, directory string) (*ScanReport, error) {
	paths, err := s.Discover(directory)
	if err != nil {
		return nil, err
	}

	handler := apkerrors.NewErrorHandler(s.logger)
	progress := utils.NewScanProgress(len(paths))
	bar := utils.NewProgressBar(s.progress, int64(len(paths)), "Parsing")
	results := make([]ScanResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := s.scanOne(path)
			if res.Err != nil {
				handler.Handle(res.Err)
			}
			if res.Skipped {
				progress.AddSkipped()
			} else {
				progress.Record(path, res.OK())
			}
			bar.Increment()
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bar.Finish()

	s.logger.Debug("Scan of %s: %s", directory, progress.Summary())
	return &ScanReport{
		Results: results,
		Counts:  progress.Counts(),
		Errors:  handler.GetStats(),
	}, nil
}

func (s *Scanner) scanOne(path string) ScanResult {
	res := ScanResult{Path: path}

	pkg, err := s.parser.ParsePackage(path)
	if err != nil {
		res.Err = err
		res.Status = apkerrors.StatusOf(err)
		return res
	}
	if pkg == nil {
		res.Skipped = true
		res.Status = pm.StatusSucceeded
		return res
	}

	if s.collectCerts {
		if err := s.parser.CollectCertificates(pkg); err != nil {
			res.Err = err
			res.Status = apkerrors.StatusOf(err)
			return res
		}
	}

	res.Package = pkg
	res.Status = pm.StatusSucceeded
	return res
}
