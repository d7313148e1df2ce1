package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCheck(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		name    string
		source  string
		wantErr string // empty means the source should pass
	}{
		{
			name:   "clean arithmetic",
			source: "x = 1 + 2\nprint(x)",
		},
		{
			name:   "clean loops and functions",
			source: "def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\nprint(fib(10))",
		},
		{
			name:    "eval rejected",
			source:  `eval("1+1")`,
			wantErr: "forbidden identifier: eval",
		},
		{
			name:    "dunder import rejected",
			source:  `__import__("os")`,
			wantErr: "forbidden identifier: __import__",
		},
		{
			name:    "file open rejected",
			source:  `open("/etc/passwd")`,
			wantErr: "forbidden identifier: open",
		},
		{
			name:    "scope introspection rejected",
			source:  "print(globals())",
			wantErr: "forbidden identifier: globals",
		},
		{
			// The scan is a plain substring match: a denylisted word in a
			// comment still rejects. Coarse on purpose.
			name:    "token inside comment still rejected",
			source:  "# never call eval here\nprint(1)",
			wantErr: "forbidden identifier: eval",
		},
		{
			name:    "token inside string literal still rejected",
			source:  `print("the open sea")`,
			wantErr: "forbidden identifier: open",
		},
		{
			name:   "empty source passes",
			source: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(tt.source)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestFilterCheck_FirstMatchWins(t *testing.T) {
	f := NewFilter(nil)

	// Both eval and open appear; the reported reason is the first denylist
	// entry found, which is the scan order, not the source order.
	err := f.Check(`open(eval("x"))`)
	assert.EqualError(t, err, "forbidden identifier: eval")
}

func TestFilterCheck_CustomDenylist(t *testing.T) {
	f := NewFilter([]string{"import"})

	assert.Error(t, f.Check("import math"))
	// eval is fine under the custom list
	assert.NoError(t, f.Check(`eval("1+1")`))
}

func TestFilterCheck_IsPure(t *testing.T) {
	f := NewFilter(nil)

	// Same input, same answer, no state between calls.
	for i := 0; i < 3; i++ {
		assert.Error(t, f.Check("eval"))
		assert.NoError(t, f.Check("print(1)"))
	}
}
