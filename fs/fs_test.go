package appfs_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathways/core"
	appfs "github.com/trezcool/pathways/fs"
)

func TestFS_embedsAssets(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "email templates with their layouts",
			pattern: "assets/templates/email/*",
			want: []string{
				"assets/templates/email/_base.gohtml",
				"assets/templates/email/_base.txt",
				"assets/templates/email/certificate_earned.gohtml",
				"assets/templates/email/certificate_earned.txt",
			},
		},
		{
			name:    "migrations",
			pattern: "migrations/*.sql",
			want: []string{
				"migrations/00001_create_learner_progress.sql",
				"migrations/00002_add_learner_progress_version.sql",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.Glob(appfs.FS, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFS_emailTemplatesParse(t *testing.T) {
	assert.NoError(t, core.ParseEmailTemplates(appfs.FS, true))
}
