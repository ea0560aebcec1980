package paths

import (
	"path/filepath"
	"testing"
)

func TestProjectID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple path", "/home/user/work/my-project", "my-project"},
		{"trailing slash", "/home/user/work/my-project/", "my-project"},
		{"single segment", "my-project", "my-project"},
		{"blank", "", ""},
		{"whitespace only", "   \t\n", ""},
		{"root only", "/", ""},
		{"nested with dots", "/srv/repos/app.core", "app.core"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProjectID(tc.in)
			if got != tc.want {
				t.Errorf("ProjectID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCacheDirEnvOverride(t *testing.T) {
	t.Setenv(CacheDirEnv, "/tmp/akb-test-cache")

	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir failed: %v", err)
	}
	if dir != "/tmp/akb-test-cache" {
		t.Errorf("expected env override, got %q", dir)
	}
}

func TestProjectDir(t *testing.T) {
	got := ProjectDir("/var/cache/akb", "demo")
	want := filepath.Join("/var/cache/akb", "demo")
	if got != want {
		t.Errorf("ProjectDir = %q, want %q", got, want)
	}
}
