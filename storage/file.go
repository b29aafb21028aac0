package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"founder-dashboard/domain"
)

// DefaultTasksFile is where the checklist lives unless configured otherwise.
const DefaultTasksFile = "tasks_data.json"

// FileStore keeps the checklist as a JSON array in a single file. Every save
// rewrites the whole file.
type FileStore struct {
	path   string
	logger *log.Logger
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if path == "" {
		path = DefaultTasksFile
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FileStore{path: path, logger: logger}
}

func (f *FileStore) Path() string { return f.path }

// LoadTasks reads the checklist. A missing or malformed file yields an empty
// list without error; any other read failure returns an empty list and the error.
func (f *FileStore) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Task{}, nil
		}
		return []domain.Task{}, fmt.Errorf("read tasks file: %w", err)
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		f.logger.WithFields(log.Fields{"path": f.path, "error": err.Error()}).Debug("tasks file is not valid json; starting empty")
		return []domain.Task{}, nil
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// SaveTasks replaces the file contents with tasks. The data is written to a
// sibling temp file first and renamed into place.
func (f *FileStore) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write tasks file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write tasks file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write tasks file: %w", err)
	}
	return nil
}
