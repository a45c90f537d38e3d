package minima

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExamples(t *testing.T) {
	tests := []struct {
		file   string
		status int
		output string // substring
	}{
		{"fib.mi", 55, "0\n1\n1\n2\n3\n5\n8\n"},
		{"sieve.mi", 25, "2 3 5 7 11 "},
		{"arrays.mi", 0, "total: 3.500000\n"},
		{"errors.mi", 6, ""},
		{"page.mit", 0, "<li>3 squared is 9</li>"},
	}

	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("examples", tc.file))
			if err != nil {
				t.Fatal(err)
			}
			var out bytes.Buffer
			opts := []Option{WithOutput(&out)}
			if strings.HasSuffix(tc.file, ".mit") {
				opts = append(opts, WithTemplate())
			}
			prog, err := New(string(src), opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer prog.Close()

			res := prog.Run(context.Background())
			if res.Status != tc.status {
				t.Errorf("status = %d, want %d (err: %v)", res.Status, tc.status, res.Err)
			}
			if !strings.Contains(out.String(), tc.output) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tc.output)
			}
		})
	}
}
