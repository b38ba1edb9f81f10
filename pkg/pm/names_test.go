package pm

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		requireSep bool
		wantErr    string
	}{
		{name: "simple package", input: "com.example.app", requireSep: true},
		{name: "digits after first letter", input: "com.ex4mple.app2", requireSep: true},
		{name: "underscore inside segment", input: "com.my_app", requireSep: true},
		{name: "segment starting with digit", input: "com.1app", requireSep: true, wantErr: "bad character '1'"},
		{name: "segment starting with underscore", input: "com._app", requireSep: true, wantErr: "bad character '_'"},
		{name: "dash", input: "com.my-app", requireSep: true, wantErr: "bad character '-'"},
		{name: "missing separator", input: "example", requireSep: true, wantErr: "separator"},
		{name: "separator optional", input: "example", requireSep: false},
		{name: "space", input: "com.ex ample", requireSep: true, wantErr: "bad character ' '"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateName(tt.input, tt.requireSep)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateName(%q) = %v, want nil", tt.input, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateName(%q) = %v, want error containing %q", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNameSegmentLaw(t *testing.T) {
	t.Parallel()

	alphabet := []string{"a", "Z", "0", "_", "b9", "x_1"}
	for _, first := range alphabet {
		for _, second := range alphabet {
			name := first + "." + second
			want := startsWithLetter(first) && startsWithLetter(second)
			got := ValidateName(name, true) == nil
			if got != want {
				t.Errorf("ValidateName(%q) valid = %v, want %v", name, got, want)
			}
		}
	}
}

func startsWithLetter(s string) bool {
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func TestBuildClassName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cls     string
		want    string
		wantErr bool
	}{
		{cls: ".Main", want: "com.x.Main"},
		{cls: "Main", want: "com.x.Main"},
		{cls: "com.x.Main", want: "com.x.Main"},
		{cls: "org.other.Service", want: "org.other.Service"},
		{cls: "", wantErr: true},
		{cls: "Com.x.Main", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.cls, func(t *testing.T) {
			t.Parallel()
			got, err := BuildClassName("com.x", tt.cls)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildClassName(%q) error = %v, wantErr %v", tt.cls, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BuildClassName(%q) = %q, want %q", tt.cls, got, tt.want)
			}
			if err == nil {
				again, _ := BuildClassName("com.x", got)
				if again != got {
					t.Errorf("qualifying %q again gave %q", got, again)
				}
			}
		})
	}
}

func TestBuildProcessName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		defProc  string
		proc     string
		flags    ParseFlags
		separate []string
		want     string
		wantErr  bool
	}{
		{name: "inherit", defProc: "com.x", proc: "", want: "com.x"},
		{name: "private suffix", defProc: "com.x", proc: ":remote", want: "com.x:remote"},
		{name: "global name", defProc: "com.x", proc: "com.shared.proc", want: "com.shared.proc"},
		{name: "system", defProc: "com.x", proc: "system", want: "system"},
		{name: "bare colon", defProc: "com.x", proc: ":", wantErr: true},
		{name: "global without separator", defProc: "com.x", proc: "remote", wantErr: true},
		{name: "ignore processes", defProc: "", proc: ":remote", flags: ParseIgnoreProcesses, want: "com.x"},
		{name: "ignore processes keeps system", defProc: "com.x", proc: "system", flags: ParseIgnoreProcesses, want: "system"},
		{name: "separate process override", defProc: "com.x", proc: "com.shared.proc", separate: []string{"com.shared.proc"}, want: "com.x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildProcessName("com.x", tt.defProc, tt.proc, tt.flags, tt.separate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildProcessName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BuildProcessName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTaskAffinityName(t *testing.T) {
	t.Parallel()

	if got, _ := BuildTaskAffinityName("com.x", "com.x", nil); got != "com.x" {
		t.Errorf("absent affinity = %q, want inherited", got)
	}
	empty := ""
	if got, _ := BuildTaskAffinityName("com.x", "com.x", &empty); got != "" {
		t.Errorf("empty affinity = %q, want empty", got)
	}
	private := ":task"
	if got, _ := BuildTaskAffinityName("com.x", "com.x", &private); got != "com.x:task" {
		t.Errorf("private affinity = %q", got)
	}
	bad := "nodots"
	if _, err := BuildTaskAffinityName("com.x", "com.x", &bad); err == nil || !strings.Contains(err.Error(), "taskAffinity") {
		t.Errorf("bad affinity error = %v", err)
	}
}
