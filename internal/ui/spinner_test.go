package ui

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSpinWith(t *testing.T) {
	errEmpty := errors.New("nothing there")

	tests := []struct {
		name    string
		err     error
		wantErr bool
		icon    string
	}{
		{"success", nil, false, "✓"},
		{"soft error", fmt.Errorf("export: %w", errEmpty), true, "⚠"},
		{"hard error", errors.New("disk full"), true, "✗"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got, err := spinWith(newSpinnerTo(&buf, "Exporting"), func() (string, error) {
				return "done", tt.err
			}, errEmpty)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Unexpected error %v", err)
			}
			if err == nil && got != "done" {
				t.Errorf("Expected result to pass through, got %q", got)
			}
			if !strings.Contains(buf.String(), tt.icon) {
				t.Errorf("Expected %s in output %q", tt.icon, buf.String())
			}
		})
	}
}
