package match

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/w/doc.xml", []byte("<a><b/></a>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/w/bad.xml", []byte("<a><b></a>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/w/attr.xml", []byte(`<a x=">" y="2"></a>`), 0o644))

	tests := []struct {
		name     string
		file     string
		location string
		policy   string
		closing  bool
		want     []string
		missing  []string
	}{
		{
			name:     "opening tag by offset",
			file:     "/w/doc.xml",
			location: "1",
			closing:  true,
			want:     []string{"status:     success", `anchor:     1:1 "<a>"`, `complement: 1:8 "</a>"`},
		},
		{
			name:     "opening tag with attributes",
			file:     "/w/attr.xml",
			location: "1",
			closing:  true,
			want:     []string{"status:     success", `anchor:     1:1 "<a x=\">\" y=\"2\">"`, `complement: 1:16 "</a>"`},
		},
		{
			name:     "closing tag by line and column",
			file:     "/w/doc.xml",
			location: "1:10",
			closing:  true,
			want:     []string{"status:     success", `anchor:     1:8 "</a>"`, `complement: 1:1 "<a>"`},
		},
		{
			name:     "soft mismatch is reported",
			file:     "/w/bad.xml",
			location: "5",
			closing:  true,
			want:     []string{"status:     soft-mismatch", `complement: 1:7 "</a>"`, "expected:", "found:"},
		},
		{
			name:     "soft mismatch is suppressed",
			file:     "/w/bad.xml",
			location: "5",
			policy:   "suppress",
			closing:  true,
			want:     []string{"status:     soft-mismatch", "suppressed: true"},
			missing:  []string{"complement:"},
		},
		{
			name:     "nothing under the caret",
			file:     "/w/doc.xml",
			location: "3",
			closing:  true,
			want:     []string{"no tag at 1:4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := &Handler{file: tt.file, location: tt.location, policy: tt.policy, closing: tt.closing, fs: fs, out: &out}
			require.NoError(t, h.Run(context.Background()))
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
			for _, m := range tt.missing {
				assert.NotContains(t, out.String(), m)
			}
		})
	}
}

func TestMatchErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/w/doc.xml", []byte("<a/>"), 0o644))

	var out bytes.Buffer
	err := (&Handler{file: "/w/doc.xml", location: "99", closing: true, fs: fs, out: &out}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad location")

	err = (&Handler{file: "/w/doc.xml", location: "1", policy: "loud", closing: true, fs: fs, out: &out}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mismatch policy")

	err = (&Handler{file: "/w/missing.xml", location: "1", closing: true, fs: fs, out: &out}).Run(context.Background())
	require.Error(t, err)
}
