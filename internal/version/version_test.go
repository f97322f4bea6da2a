package version

import "testing"

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"
	want := "capsule-fit v1.2.3 (commit unknown, built unknown)"
	if got := String("capsule-fit"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
