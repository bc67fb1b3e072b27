package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.Greater(t, d.Size(), 50)
	assert.Contains(t, d.Entries(), "Hemoglobin")
	assert.Contains(t, d.Entries(), "Glucose")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.txt")
	content := "# comment line\n\nHemoglobin\nGlucose\nglucose\n  Creatinine  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	// Duplicate "glucose" collapses onto the first occurrence.
	assert.Equal(t, 3, d.Size())
	assert.Equal(t, []string{"Hemoglobin", "Glucose", "Creatinine"}, d.Entries())
}

func TestLoad_StripsByteOrderMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFHemoglobin\nGlucose\n"), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hemoglobin", "Glucose"}, d.Entries())

	name, ok := d.Match("hemoglobin", 0.7)
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin", name)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# only comments\n"), 0o600))
	_, err = Load(empty)
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hemoglobin", "hemoglobin"},
		{"  HEMOGLOBIN  ", "hemoglobin"},
		{"HbA1c", "hba1c"},
		{"RBC-Count", "rbc count"},
		{"vitamin_d", "vitamin d"},
		{"Créatinine", "creatinine"},
		{"T.S.H.", "tsh"},
		{"", ""},
		{"***", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestMatch(t *testing.T) {
	d := Default()

	t.Run("exact", func(t *testing.T) {
		name, ok := d.Match("glucose", 0.7)
		require.True(t, ok)
		assert.Equal(t, "Glucose", name)
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		name, ok := d.Match("  HEMOGLOBIN  ", 0.7)
		require.True(t, ok)
		assert.Equal(t, "Hemoglobin", name)
	})

	t.Run("substring containment", func(t *testing.T) {
		name, ok := d.Match("Serum Creatinine", 0.7)
		require.True(t, ok)
		assert.Equal(t, "Creatinine", name)
	})

	t.Run("fuzzy single edit", func(t *testing.T) {
		name, ok := d.Match("Glucoze", 0.7)
		require.True(t, ok)
		assert.Equal(t, "Glucose", name)
	})

	t.Run("fuzzy ocr noise", func(t *testing.T) {
		name, ok := d.Match("Hemog1obin", 0.7)
		require.True(t, ok)
		assert.Equal(t, "Hemoglobin", name)
	})

	t.Run("too short", func(t *testing.T) {
		_, ok := d.Match("G", 0.7)
		assert.False(t, ok)
	})

	t.Run("unrelated text", func(t *testing.T) {
		_, ok := d.Match("Patient Address", 0.7)
		assert.False(t, ok)
	})

	t.Run("threshold blocks weak matches", func(t *testing.T) {
		_, ok := d.Match("Glxxxxe", 0.95)
		assert.False(t, ok)
	})
}
