package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
)

// DefaultCategoriesFile is the bucket file looked up when none is configured.
const DefaultCategoriesFile = "categories.yaml"

// CategoryLoader supplies the fallback keyword buckets of the categorizer.
type CategoryLoader interface {
	LoadCategories() ([]models.CategoryConfig, error)
}

// CategoryStore manages loading and saving of the fallback bucket file.
type CategoryStore struct {
	CategoriesFile string
	logger         logging.Logger
}

// NewCategoryStore creates a new store for the categories YAML file.
func NewCategoryStore(categoriesFile string, logger logging.Logger) *CategoryStore {
	return &CategoryStore{
		CategoriesFile: categoriesFile,
		logger:         logging.OrDefault(logger),
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *CategoryStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join(".fintrack", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(homeDir, ".fintrack", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

func (s *CategoryStore) filename() string {
	if s.CategoriesFile == "" {
		return DefaultCategoriesFile
	}
	return s.CategoriesFile
}

// LoadCategories loads the buckets from the YAML file. A missing file is not
// an error; the categorizer then uses its built-in buckets.
func (s *CategoryStore) LoadCategories() ([]models.CategoryConfig, error) {
	filename := s.filename()

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Categories file not found", logging.F(logging.FieldFile, filename))
			return []models.CategoryConfig{}, nil
		}
		return nil, fmt.Errorf("error resolving categories file: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading categories file: %w", err)
	}

	var categoriesConfig models.CategoriesConfig
	if err := yaml.Unmarshal(data, &categoriesConfig); err == nil && len(categoriesConfig.Categories) > 0 {
		return s.loaded(filePath, categoriesConfig.Categories), nil
	}

	var categories []models.CategoryConfig
	if err := yaml.Unmarshal(data, &categories); err == nil && len(categories) > 0 {
		return s.loaded(filePath, categories), nil
	}

	return s.parseKeywordMap(filePath, data)
}

func (s *CategoryStore) loaded(path string, categories []models.CategoryConfig) []models.CategoryConfig {
	for i := range categories {
		for j, k := range categories[i].Keywords {
			categories[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	s.logger.Debug("Loaded categories",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, len(categories)))
	return categories
}

// parseKeywordMap accepts the short form "Name: [kw, kw]". Map order is not
// preserved by YAML decoding into a map, so the node tree is walked instead.
func (s *CategoryStore) parseKeywordMap(path string, data []byte) ([]models.CategoryConfig, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error parsing categories file: %w", err)
	}
	if len(root.Content) == 0 {
		return []models.CategoryConfig{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("error parsing categories file: unexpected YAML structure")
	}

	var categories []models.CategoryConfig
	for i := 0; i+1 < len(doc.Content); i += 2 {
		category := models.CategoryConfig{Name: doc.Content[i].Value}
		var keywords []string
		if err := doc.Content[i+1].Decode(&keywords); err == nil {
			category.Keywords = keywords
		}
		categories = append(categories, category)
	}
	return s.loaded(path, categories), nil
}

// SaveCategories writes buckets to the configured file, creating parent
// directories as needed.
func (s *CategoryStore) SaveCategories(categories []models.CategoryConfig) error {
	filePath, err := s.FindConfigFile(s.filename())
	if err != nil {
		filePath = s.filename()
	}

	if err := os.MkdirAll(filepath.Dir(filePath), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	data, err := yaml.Marshal(models.CategoriesConfig{Categories: categories})
	if err != nil {
		return fmt.Errorf("error marshaling categories: %w", err)
	}

	if err := os.WriteFile(filePath, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error writing categories: %w", err)
	}

	s.logger.Debug("Saved categories",
		logging.F(logging.FieldFile, filePath),
		logging.F(logging.FieldCount, len(categories)))
	return nil
}

var _ CategoryLoader = (*CategoryStore)(nil)
