package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a catalog from a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading catalog: %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}

// Load walks fsys for *.topic.yaml and *.quiz.yaml files. Files that fail to
// parse or validate are skipped with a warning, as are files reusing a topic
// key or quiz id already loaded. WalkDir visits files in lexical order, so the
// first file wins.
func Load(fsys fs.FS) (*Catalog, error) {
	var (
		topics    []Topic
		quizzes   []Quiz
		topicKeys = make(map[string]string)
		quizPaths = make(map[int]string)
	)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		kind, ok := kindOf(p)
		if !ok {
			return nil // not a catalog file
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		switch kind {
		case KindTopic:
			var t Topic
			if err := decode(kind, data, &t); err != nil {
				slog.Warn("skipping invalid topic file", "path", p, "error", err)
				return nil
			}
			if err := t.Validate(); err != nil {
				slog.Warn("skipping invalid topic file", "path", p, "error", err)
				return nil
			}
			if first, dup := topicKeys[t.Key()]; dup {
				slog.Warn("skipping duplicate topic file", "path", p, "topic_key", t.Key(), "first", first)
				return nil
			}
			topicKeys[t.Key()] = p
			topics = append(topics, t)
		case KindQuiz:
			var q Quiz
			if err := decode(kind, data, &q); err != nil {
				slog.Warn("skipping invalid quiz file", "path", p, "error", err)
				return nil
			}
			if err := q.Validate(); err != nil {
				slog.Warn("skipping invalid quiz file", "path", p, "error", err)
				return nil
			}
			if first, dup := quizPaths[q.ID]; dup {
				slog.Warn("skipping duplicate quiz file", "path", p, "quiz_id", q.ID, "first", first)
				return nil
			}
			quizPaths[q.ID] = p
			quizzes = append(quizzes, q)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	c, err := New(topics, quizzes)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded", "topics", len(topics), "quizzes", len(quizzes))
	return c, nil
}

func kindOf(p string) (Kind, bool) {
	base := path.Base(p)
	for _, ext := range []string{".yaml", ".yml"} {
		switch {
		case strings.HasSuffix(base, ".topic"+ext):
			return KindTopic, true
		case strings.HasSuffix(base, ".quiz"+ext):
			return KindQuiz, true
		}
	}
	return "", false
}

// decode checks the raw document against the schema before decoding into v.
func decode(kind Kind, data []byte, v any) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := ValidateDocument(kind, doc); err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
