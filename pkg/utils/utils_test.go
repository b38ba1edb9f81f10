package utils

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "debug", want: LogLevelDebug},
		{in: " WARN ", want: LogLevelWarn},
		{in: "error", want: LogLevelError},
		{in: "info", want: LogLevelInfo},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]LogFormat{"": LogFormatText, "text": LogFormatText, "JSON": LogFormatJSON, "logfmt": LogFormatLogfmt}
	for in, want := range tests {
		got, err := ParseLogFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseLogFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogFormat("xml"); err == nil {
		t.Error("ParseLogFormat(xml) succeeded")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: LogFormatLogfmt, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden %d", 1)
	l.WithField("archive", "a.apk").Warn("bad manifest in %s", "a.apk")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warn level: %s", out)
	}
	if !strings.Contains(out, "bad manifest in a.apk") || !strings.Contains(out, "archive=a.apk") {
		t.Errorf("warn output = %s", out)
	}
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pb := NewProgressBar(&buf, 2, "Scanning")
	pb.Increment()
	if got := pb.Current(); got != 1 {
		t.Errorf("Current() = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "(1/2)") {
		t.Errorf("render = %q", buf.String())
	}
	pb.Finish()
	if !strings.Contains(buf.String(), "(2/2)") {
		t.Errorf("render after Finish = %q", buf.String())
	}

	silent := NewProgressBar(nil, 3, "quiet")
	silent.Increment()
	silent.Finish()
	if got := silent.Current(); got != 3 {
		t.Errorf("Current() after Finish = %d, want 3", got)
	}
}

func TestScanProgressConcurrent(t *testing.T) {
	t.Parallel()

	sp := NewScanProgress(40)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sp.Record("f.apk", i%4 != 0)
		}(i)
	}
	sp.AddSkipped()
	wg.Wait()

	c := sp.Counts()
	if c.ProcessedFiles != 40 || c.Parsed != 30 || c.Failed != 10 || c.Skipped != 1 {
		t.Errorf("Counts() = %+v", c)
	}
	if !strings.HasPrefix(sp.Summary(), "processed 40 of 40 files (30 parsed, 10 failed, 1 skipped)") {
		t.Errorf("Summary() = %q", sp.Summary())
	}
}
