package version

import (
	"runtime/debug"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		linked string
		info   debug.BuildInfo
		want   Info
	}{
		{
			name:   "local build",
			linked: versionDevel,
			info:   debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want:   Info{Version: versionDevel},
		},
		{
			name:   "go install",
			linked: versionDevel,
			info:   debug.BuildInfo{Main: debug.Module{Version: "v1.2.0"}},
			want:   Info{Version: "v1.2.0"},
		},
		{
			name:   "ldflags win over module version",
			linked: "v2.0.0",
			info:   debug.BuildInfo{Main: debug.Module{Version: "v1.2.0"}},
			want:   Info{Version: "v2.0.0"},
		},
		{
			name:   "vcs settings",
			linked: versionDevel,
			info: debug.BuildInfo{Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.modified", Value: "true"},
			}},
			want: Info{Version: versionDevel, Commit: "0123456789ab", Dirty: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fromBuildInfo(tt.linked, &tt.info)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fromBuildInfo() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	if got, want := UserAgent("notifyctl"), "notifyctl/"+Get(); got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
