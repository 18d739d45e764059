package version

import "testing"

func TestString_AddsSingleVPrefix(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	tests := map[string]string{
		"1.2.0":             "v1.2.0",
		"v1.2.0":            "v1.2.0",
		"dev":               "vdev",
		"0.3.0-rc1":         "v0.3.0-rc1",
		"v0.3.0-12-gab12cd": "v0.3.0-12-gab12cd",
	}

	for input, want := range tests {
		Version = input
		if got := String(); got != want {
			t.Errorf("String() with Version=%q = %q, want %q", input, got, want)
		}
	}
}
