package extractor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/extractor"
)

func Test_Extractor_Extract(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		input   string
		options []extractor.ExtractOption
	}{
		{
			name:  "compressed",
			input: "testdata/update.tar.bz2",
		},
		{
			name:  "uncompressed",
			input: "testdata/update.tar",
			options: []extractor.ExtractOption{
				extractor.Uncompressed(),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Setup
			dest := filepath.Join(t.TempDir(), "2.0.0")
			archive, err := os.Open(tc.input)
			require.NoError(t, err)
			defer archive.Close()
			x := extractor.New()

			// Exercise
			err = x.Extract(t.Context(), archive, dest, tc.options...)

			// Verify
			require.NoError(t, err)
			plist, err := os.ReadFile(filepath.Join(dest, "Sparkly.app", "Contents", "Info.plist"))
			require.NoError(t, err)
			assert.Contains(t, string(plist), "<string>2.0.0</string>")

			stat, err := os.Stat(filepath.Join(dest, "Sparkly.app", "Contents", "MacOS", "sparkly"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0755), stat.Mode().Perm())
			assert.Equal(t, int64(1635595200), stat.ModTime().Unix())
		})
	}
}

func Test_Extractor_Extract_Progress(t *testing.T) {
	t.Parallel()
	// Setup
	archive, err := os.Open("testdata/update.tar")
	require.NoError(t, err)
	defer archive.Close()
	stat, err := archive.Stat()
	require.NoError(t, err)
	var reports []float64

	// Exercise
	err = extractor.New().Extract(t.Context(), archive, t.TempDir(),
		extractor.Uncompressed(),
		extractor.WithProgress(stat.Size(), func(completed float64) {
			reports = append(reports, completed)
		}),
	)

	// Verify
	require.NoError(t, err)
	require.NotEmpty(t, reports)
	assert.IsNonDecreasing(t, reports)
	assert.Equal(t, 1.0, reports[len(reports)-1])
	for _, r := range reports {
		assert.Greater(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func Test_Extractor_Extract_Errors(t *testing.T) {
	t.Parallel()
	t.Run("entry escapes destination", func(t *testing.T) {
		t.Parallel()
		// Setup
		parent := t.TempDir()
		dest := filepath.Join(parent, "update")
		archive, err := os.Open("testdata/escape.tar")
		require.NoError(t, err)
		defer archive.Close()

		// Exercise
		err = extractor.New().Extract(t.Context(), archive, dest, extractor.Uncompressed())

		// Verify
		assert.ErrorIs(t, err, extractor.ErrIllegalPath)
		assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))
		assert.NoDirExists(t, dest, "a failed extraction leaves nothing behind")
	})
	t.Run("destination is a file", func(t *testing.T) {
		t.Parallel()
		// Setup
		dest := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(dest, nil, 0644))
		archive, err := os.Open("testdata/update.tar")
		require.NoError(t, err)
		defer archive.Close()

		// Exercise
		err = extractor.New().Extract(t.Context(), archive, dest, extractor.Uncompressed())

		// Verify
		assert.ErrorContains(t, err, "is not a directory")
	})
}

func Test_IsCompressed(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		want    bool
		wantErr bool
	}{
		{name: "Sparkly-2.0.0.tar.bz2", want: true},
		{name: "Sparkly-2.0.0.tbz", want: true},
		{name: "Sparkly-2.0.0.tar", want: false},
		{name: "Sparkly-2.0.0.zip", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Exercise
			got, err := extractor.IsCompressed(tc.name)

			// Verify
			if tc.wantErr {
				assert.ErrorIs(t, err, extractor.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
