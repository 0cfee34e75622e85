package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ChunkStore is the local staging area for in-flight upload chunks. Each
// task stages under its own directory; chunk files are named by zero-padded
// index so a directory listing sorts in assembly order.
//
// Chunk bytes are always flushed to disk before SaveChunk returns. Callers
// record chunk metadata only after SaveChunk succeeds, never before.
type ChunkStore struct {
	baseDir string
}

// NewChunkStore creates the staging root if needed
func NewChunkStore(baseDir string) (*ChunkStore, error) {
	if baseDir == "" {
		baseDir = "./uploads/temp"
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &ChunkStore{baseDir: baseDir}, nil
}

func (s *ChunkStore) taskDir(taskID string) string {
	return filepath.Join(s.baseDir, taskID)
}

func (s *ChunkStore) chunkPath(taskID string, index int64) string {
	return filepath.Join(s.taskDir(taskID), fmt.Sprintf("chunk_%06d", index))
}

// SaveChunk stages one chunk and returns the number of bytes written.
// The bytes go to a scratch file first and are renamed into place after a
// successful fsync, so concurrent writers for the same index both land a
// complete file and the loser's rename simply overwrites identical bytes.
func (s *ChunkStore) SaveChunk(taskID string, index int64, reader io.Reader) (int64, error) {
	dir := s.taskDir(taskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create task staging directory: %w", err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".chunk_%06d.%s", index, uuid.NewString()))
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create chunk file: %w", err)
	}

	written, err := io.Copy(tmp, reader)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write chunk: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to sync chunk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close chunk: %w", err)
	}

	if err := os.Rename(tmpPath, s.chunkPath(taskID, index)); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to finalize chunk: %w", err)
	}

	return written, nil
}

// OpenChunk opens a staged chunk for reading
func (s *ChunkStore) OpenChunk(taskID string, index int64) (io.ReadCloser, error) {
	f, err := os.Open(s.chunkPath(taskID, index))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// HasChunk reports whether a chunk is staged
func (s *ChunkStore) HasChunk(taskID string, index int64) (bool, error) {
	_, err := os.Stat(s.chunkPath(taskID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ChunkSize returns the staged size of a chunk in bytes
func (s *ChunkStore) ChunkSize(taskID string, index int64) (int64, error) {
	info, err := os.Stat(s.chunkPath(taskID, index))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// RemoveChunk discards a staged chunk, used when a write landed bytes that
// fail validation and must not be trusted by assembly
func (s *ChunkStore) RemoveChunk(taskID string, index int64) error {
	if err := os.Remove(s.chunkPath(taskID, index)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove chunk: %w", err)
	}
	return nil
}

// HasStaging reports whether the task has a staging directory at all
func (s *ChunkStore) HasStaging(taskID string) (bool, error) {
	_, err := os.Stat(s.taskDir(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Purge removes the task's staging directory and every staged chunk in it
func (s *ChunkStore) Purge(taskID string) error {
	if err := os.RemoveAll(s.taskDir(taskID)); err != nil {
		return fmt.Errorf("failed to purge staging: %w", err)
	}
	return nil
}
