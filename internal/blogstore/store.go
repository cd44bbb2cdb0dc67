// Package blogstore persists the blog's posts and comments as whole JSON
// files, the way the editing UI reads and writes them. Each file has its own
// mutex so two handlers can never interleave a load-mutate-save window, and
// writes go through a temp-file rename so a failed write leaves the previous
// contents untouched.
package blogstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"blog-backend/internal/models"
)

var ErrPostNotFound = errors.New("Post not found")

type Store struct {
	postsPath    string
	commentsPath string

	postsMu    sync.Mutex
	commentsMu sync.Mutex
}

func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{
		postsPath:    filepath.Join(dataDir, "posts.json"),
		commentsPath: filepath.Join(dataDir, "comments.json"),
	}, nil
}

// GetPosts returns the post collection, or a seeded default when no file
// exists yet. The default is not written back; the first editor save does
// that.
func (s *Store) GetPosts() (models.PostCollection, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	return s.loadPosts()
}

func (s *Store) loadPosts() (models.PostCollection, error) {
	data, err := os.ReadFile(s.postsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultPosts(), nil
		}
		return models.PostCollection{}, fmt.Errorf("failed to read posts file: %w", err)
	}

	var pc models.PostCollection
	if err := json.Unmarshal(data, &pc); err != nil {
		return models.PostCollection{}, fmt.Errorf("failed to parse posts file: %w", err)
	}
	return pc, nil
}

// ReplacePosts rewrites the whole collection.
func (s *Store) ReplacePosts(pc models.PostCollection) error {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	return writeJSON(s.postsPath, pc)
}

// DeletePost removes the post with the given id and persists the result.
func (s *Store) DeletePost(id int) error {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	pc, err := s.loadPosts()
	if err != nil {
		return err
	}

	kept := pc.Posts[:0]
	for _, p := range pc.Posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(pc.Posts) {
		return ErrPostNotFound
	}
	pc.Posts = kept

	return writeJSON(s.postsPath, pc)
}

// IncrementViews bumps the view counter of one post and returns the new
// count.
func (s *Store) IncrementViews(id int) (int, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	pc, err := s.loadPosts()
	if err != nil {
		return 0, err
	}

	for i := range pc.Posts {
		if pc.Posts[i].ID == id {
			pc.Posts[i].Views++
			if err := writeJSON(s.postsPath, pc); err != nil {
				return 0, err
			}
			return pc.Posts[i].Views, nil
		}
	}
	return 0, ErrPostNotFound
}

// GetComments returns the raw comment map, or an empty object when no file
// exists. Comment shape is owned by the UI; the server stores it opaquely.
func (s *Store) GetComments() (json.RawMessage, error) {
	s.commentsMu.Lock()
	defer s.commentsMu.Unlock()

	data, err := os.ReadFile(s.commentsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("failed to read comments file: %w", err)
	}
	return json.RawMessage(data), nil
}

// ReplaceComments rewrites the whole comment map. The payload must be valid
// JSON; it is re-indented on the way to disk.
func (s *Store) ReplaceComments(raw json.RawMessage) error {
	s.commentsMu.Lock()
	defer s.commentsMu.Unlock()

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to parse comments payload: %w", err)
	}
	return writeJSON(s.commentsPath, v)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

func defaultPosts() models.PostCollection {
	return models.PostCollection{
		Posts: []models.Post{
			{
				ID:        1,
				Title:     "Welcome to My Blog",
				Excerpt:   "First post. Notes on what this site is for and what to expect.",
				Category:  "life",
				Date:      "2025-01-27",
				Image:     "📝",
				Published: true,
				Content:   "This is the first post on this blog...",
			},
			{
				ID:        2,
				Title:     "Getting Started with MkDocs",
				Excerpt:   "MkDocs is a fast and simple static site generator for project documentation.",
				Category:  "tech",
				Date:      "2025-01-26",
				Image:     "📚",
				Published: true,
				Content:   "MkDocs is a great documentation tool...",
			},
		},
		Config: models.BlogConfig{
			Title:       "My Blog",
			Description: "Notes on software, tooling and everything in between",
			Author:      "Blog Author",
		},
	}
}
