package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage хранит снимок реестра в JSON-файле
type FileStorage struct {
	mu       sync.Mutex
	filePath string
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage - конструктор для FileStorage. Пустой путь отключает сохранение.
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{filePath: filePath}
}

// SaveSnapshot записывает снимок во временный файл и переименовывает его,
// чтобы при сбое не остался наполовину записанный файл
func (s *FileStorage) SaveSnapshot(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil
	}

	if records == nil {
		records = []Record{}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// LoadSnapshot читает снимок. Отсутствующий файл - пустой снимок.
func (s *FileStorage) LoadSnapshot(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil, nil
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var records []Record
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

func (s *FileStorage) Ping(_ context.Context) error {
	if s.filePath == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("snapshot directory is unavailable: %w", err)
	}
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}
