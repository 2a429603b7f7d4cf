package checksum

import (
	"testing"
)

func TestSHA256Calculator_CalculateRaw(t *testing.T) {
	calc := New()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "Empty string",
			content:  "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "abc",
			content:  "abc",
			expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calc.CalculateRaw([]byte(tt.content))
			if result != tt.expected {
				t.Errorf("CalculateRaw() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestSHA256Calculator_Fingerprint_OrderIndependent(t *testing.T) {
	calc := New()

	a := []Entry{
		{Path: "SKILL.md", Content: []byte("# A")},
		{Path: "references/x.md", Content: []byte("x")},
	}
	b := []Entry{a[1], a[0]}

	if calc.Fingerprint(a) != calc.Fingerprint(b) {
		t.Error("Fingerprint() depends on entry order")
	}
	if len(calc.Fingerprint(a)) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64", len(calc.Fingerprint(a)))
	}
}

func TestSHA256Calculator_Fingerprint_Sensitivity(t *testing.T) {
	calc := New()

	base := []Entry{
		{Path: "SKILL.md", Content: []byte("ab")},
		{Path: "b.md", Content: []byte("c")},
	}

	tests := []struct {
		name    string
		entries []Entry
	}{
		{
			name: "content change",
			entries: []Entry{
				{Path: "SKILL.md", Content: []byte("ab!")},
				{Path: "b.md", Content: []byte("c")},
			},
		},
		{
			name: "bytes moved between files",
			entries: []Entry{
				{Path: "SKILL.md", Content: []byte("a")},
				{Path: "b.md", Content: []byte("bc")},
			},
		},
		{
			name: "rename",
			entries: []Entry{
				{Path: "SKILL.md", Content: []byte("ab")},
				{Path: "c.md", Content: []byte("c")},
			},
		},
		{
			name: "file removed",
			entries: []Entry{
				{Path: "SKILL.md", Content: []byte("ab")},
			},
		},
	}

	want := calc.Fingerprint(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Fingerprint(tt.entries); got == want {
				t.Errorf("Fingerprint() did not change for %s", tt.name)
			}
		})
	}
}

func TestSHA256Calculator_Fingerprint_DoesNotMutateInput(t *testing.T) {
	calc := New()
	entries := []Entry{{Path: "z.md"}, {Path: "a.md"}}

	calc.Fingerprint(entries)

	if entries[0].Path != "z.md" {
		t.Error("Fingerprint() reordered the caller's slice")
	}
}

func TestSHA256Calculator_Digest(t *testing.T) {
	calc := New()

	if calc.Digest("ab", "c") == calc.Digest("a", "bc") {
		t.Error("Digest() must length-prefix its parts")
	}
	if calc.Digest("x", "y") == calc.Digest("y", "x") {
		t.Error("Digest() must be order sensitive")
	}
	if calc.Digest() != calc.Digest() {
		t.Error("Digest() is not deterministic")
	}
}

func TestSHA256Calculator_ConcurrentUse(t *testing.T) {
	calc := New()
	entries := []Entry{{Path: "SKILL.md", Content: []byte("x")}}
	want := calc.Fingerprint(entries)

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- calc.Fingerprint(entries) }()
	}
	for i := 0; i < 8; i++ {
		if got := <-done; got != want {
			t.Errorf("concurrent Fingerprint() = %s, want %s", got, want)
		}
	}
}
