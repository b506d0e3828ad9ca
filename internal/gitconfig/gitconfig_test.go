package gitconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIncludePaths(t *testing.T) {
	config := `
# user config
[user]
	name = Someone
	email = someone@example.com

[include]
	path = ~/.gitconfig.local

[includeIf "gitdir:~/work/"]
	path = work.gitconfig

[IncludeIf "gitdir/i:~/Projects/"]
	path = "quoted path.inc"

[alias]
	path = not-an-include
`
	got := IncludePaths([]byte(config))
	want := []string{"~/.gitconfig.local", "work.gitconfig", "quoted path.inc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("IncludePaths mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludePathsEmpty(t *testing.T) {
	if got := IncludePaths([]byte("[user]\n\tname = x\n")); got != nil {
		t.Errorf("IncludePaths = %v, want nil", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		path, baseDir, home, want string
	}{
		{"~/.gitconfig.local", "/home/u/.config/git", "/home/u", "/home/u/.gitconfig.local"},
		{"work.gitconfig", "/home/u", "/home/u", "/home/u/work.gitconfig"},
		{"/etc/gitconfig.d/x", "/home/u", "/home/u", "/etc/gitconfig.d/x"},
		{"~", "/base", "/home/u", "/home/u"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.path, tt.baseDir, tt.home); got != tt.want {
			t.Errorf("Resolve(%q, %q, %q) = %q, want %q", tt.path, tt.baseDir, tt.home, got, tt.want)
		}
	}
}
