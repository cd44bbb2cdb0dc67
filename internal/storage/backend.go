package storage

import "time"

type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Backend stores uploaded files under flat names. Filenames are validated by
// the callers before they reach a backend.
type Backend interface {
	Save(filename string, data []byte) error
	Read(filename string) ([]byte, error)
	List() ([]FileInfo, error)
	Delete(filename string) error
	Rename(oldName, newName string) error
	Exists(filename string) (bool, error)
	GetName() string
}
