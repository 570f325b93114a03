package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "test.yaml")
	writeFile(t, testFile, "test content")

	s := NewCategoryStore("", logging.NewMockLogger())

	file, err := s.FindConfigFile(testFile)
	assert.NoError(t, err)
	assert.Equal(t, testFile, file)

	_, err = s.FindConfigFile(filepath.Join(dir, "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestLoadCategories_Formats(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []models.CategoryConfig
	}{
		{
			name: "top-level key",
			content: `categories:
  - name: Food
    keywords: ["Bakery", "coffee"]
  - name: Pets
    keywords: ["vet"]
`,
			expected: []models.CategoryConfig{
				{Name: "Food", Keywords: []string{"bakery", "coffee"}},
				{Name: "Pets", Keywords: []string{"vet"}},
			},
		},
		{
			name: "bare list",
			content: `- name: Rent
  keywords: ["landlord"]
`,
			expected: []models.CategoryConfig{{Name: "Rent", Keywords: []string{"landlord"}}},
		},
		{
			name: "keyword map keeps file order",
			content: `Zoo: [lion]
Apple: [iphone, MacBook]
`,
			expected: []models.CategoryConfig{
				{Name: "Zoo", Keywords: []string{"lion"}},
				{Name: "Apple", Keywords: []string{"iphone", "macbook"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "categories.yaml")
			writeFile(t, file, tt.content)

			got, err := NewCategoryStore(file, nil).LoadCategories()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoadCategories_Missing(t *testing.T) {
	got, err := NewCategoryStore(filepath.Join(t.TempDir(), "none.yaml"), nil).LoadCategories()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadCategories_Malformed(t *testing.T) {
	file := filepath.Join(t.TempDir(), "categories.yaml")
	writeFile(t, file, "just a scalar")

	_, err := NewCategoryStore(file, nil).LoadCategories()
	assert.Error(t, err)
}

func TestSaveCategories_RoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "categories.yaml")
	s := NewCategoryStore(file, nil)

	in := []models.CategoryConfig{{Name: "Pets", Keywords: []string{"vet", "petshop"}}}
	require.NoError(t, s.SaveCategories(in))

	got, err := s.LoadCategories()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestMockCategoryStore(t *testing.T) {
	m := &MockCategoryStore{Categories: []models.CategoryConfig{{Name: "X"}}}
	got, err := m.LoadCategories()
	require.NoError(t, err)
	assert.Len(t, got, 1)

	m.LoadCategoriesError = os.ErrPermission
	_, err = m.LoadCategories()
	assert.ErrorIs(t, err, os.ErrPermission)
}
