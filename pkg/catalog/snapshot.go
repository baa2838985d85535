package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	errs "articlegrab/pkg/errors"
)

// Snapshot file names, kept at the root of the save directory so the
// listing phase runs once per target unless explicitly refreshed.
const (
	ArticleListFile = "_article_list.json"
	QAListFile      = "_qa_list.json"
)

// HasSnapshot reports whether a snapshot file exists under dir.
func HasSnapshot(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// SaveSnapshot writes a catalog snapshot atomically.
func SaveSnapshot(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to encode %s: %v", name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to create save directory: %v", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to write %s: %v", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.ErrorTypeWrite, 0, "failed to replace %s: %v", name, err)
	}
	return nil
}

// LoadArticles reads the article snapshot under dir.
func LoadArticles(dir string) ([]Article, error) {
	var articles []Article
	if err := loadSnapshot(dir, ArticleListFile, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// LoadQA reads the Q&A snapshot under dir.
func LoadQA(dir string) ([]QA, error) {
	var items []QA
	if err := loadSnapshot(dir, QAListFile, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func loadSnapshot(dir, name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to read %s: %v", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.New(errs.ErrorTypeParse, 0, "failed to decode %s: %v", name, err)
	}
	return nil
}
