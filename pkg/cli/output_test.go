package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

type summary struct {
	Name    string `json:"name"`
	Targets int    `json:"targets"`
}

func (s summary) String() string {
	return fmt.Sprintf("%s: %d targets", s.Name, s.Targets)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"", FormatText, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatterUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, summary{Name: "gateway", Targets: 2}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	if buf.String() != "gateway: 2 targets\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	for _, indent := range []bool{false, true} {
		t.Run(fmt.Sprintf("indent=%v", indent), func(t *testing.T) {
			formatter := &JSONFormatter{Indent: indent}
			output, err := formatter.Format(summary{Name: "gateway", Targets: 2})
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var result summary
			if err := json.Unmarshal(output, &result); err != nil {
				t.Fatalf("Format() produced invalid JSON: %v", err)
			}
			if result.Targets != 2 {
				t.Errorf("Format() = %s", output)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := fmt.Sprintf("%T", NewFormatter(tt.format))
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
