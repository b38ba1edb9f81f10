package utils

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar renders a single line progress bar. It is safe for
// concurrent use by scan workers.
type ProgressBar struct {
	mu          sync.Mutex
	out         io.Writer
	total       int64
	current     int64
	description string
	startTime   time.Time
	width       int
	showETA     bool
}

// NewProgressBar creates a new progress bar writing to out. A nil out
// disables rendering.
func NewProgressBar(out io.Writer, total int64, description string) *ProgressBar {
	return &ProgressBar{
		out:         out,
		total:       total,
		description: description,
		startTime:   time.Now(),
		width:       40,
		showETA:     true,
	}
}

// Increment increments the progress by 1
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
	pb.render()
}

// Current returns the number of completed steps.
func (pb *ProgressBar) Current() int64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.current
}

// Finish completes the progress bar
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = pb.total
	pb.render()
	if pb.out != nil && pb.total > 0 {
		fmt.Fprintln(pb.out)
	}
}

func (pb *ProgressBar) render() {
	if pb.out == nil || pb.total <= 0 {
		return
	}

	current := pb.current
	if current > pb.total {
		current = pb.total
	}
	percentage := float64(current) / float64(pb.total) * 100
	filled := int(float64(pb.width) * float64(current) / float64(pb.total))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)

	var eta string
	if pb.showETA && current > 0 && current < pb.total {
		elapsed := time.Since(pb.startTime)
		totalTime := time.Duration(float64(elapsed) * float64(pb.total) / float64(current))
		if remaining := totalTime - elapsed; remaining > 0 {
			eta = fmt.Sprintf(" ETA: %v", remaining.Round(time.Second))
		}
	}

	fmt.Fprintf(pb.out, "\r%s [%s] %.1f%% (%d/%d)%s",
		pb.description, bar, percentage, current, pb.total, eta)
}

// ScanCounts is a point in time view of a ScanProgress.
type ScanCounts struct {
	TotalFiles     int
	ProcessedFiles int
	Parsed         int
	Failed         int
	Skipped        int
	CurrentFile    string
}

// ScanProgress tracks the outcome of a directory scan.
type ScanProgress struct {
	mu        sync.Mutex
	counts    ScanCounts
	StartTime time.Time
}

// NewScanProgress creates a new scan progress tracker
func NewScanProgress(total int) *ScanProgress {
	return &ScanProgress{
		counts:    ScanCounts{TotalFiles: total},
		StartTime: time.Now(),
	}
}

// Record accounts for one processed archive.
func (sp *ScanProgress) Record(file string, ok bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.counts.CurrentFile = file
	sp.counts.ProcessedFiles++
	if ok {
		sp.counts.Parsed++
	} else {
		sp.counts.Failed++
	}
}

// AddSkipped accounts for a file filtered out before parsing.
func (sp *ScanProgress) AddSkipped() {
	sp.mu.Lock()
	sp.counts.Skipped++
	sp.mu.Unlock()
}

// Counts returns a copy of the counters.
func (sp *ScanProgress) Counts() ScanCounts {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.counts
}

// Elapsed returns the time since the scan started.
func (sp *ScanProgress) Elapsed() time.Duration {
	return time.Since(sp.StartTime)
}

// Summary returns a one line summary of the scan.
func (sp *ScanProgress) Summary() string {
	c := sp.Counts()
	return fmt.Sprintf("processed %d of %d files (%d parsed, %d failed, %d skipped) in %v",
		c.ProcessedFiles, c.TotalFiles, c.Parsed, c.Failed, c.Skipped, sp.Elapsed().Round(time.Millisecond))
}
