package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrFileNotFound indicates the requested file was not found
	ErrFileNotFound = errors.New("file not found")
	// ErrFileWriteFailed indicates file write operation failed
	ErrFileWriteFailed = errors.New("failed to write file")
	// ErrFileReadFailed indicates file read operation failed
	ErrFileReadFailed = errors.New("failed to read file")
	// ErrPathOutsideArchive is returned for paths that escape the archive root
	ErrPathOutsideArchive = errors.New("path outside reply archive")
)

// Store keeps raw replies and their verdicts on disk, one directory per booking
type Store struct {
	root string
}

// NewStore creates an archive rooted at {dataDir}/replies
func NewStore(dataDir string) *Store {
	return &Store{root: filepath.Join(dataDir, "replies")}
}

// Root returns the archive root directory
func (s *Store) Root() string {
	return s.root
}

// BookingDir returns the directory holding replies for a booking
func (s *Store) BookingDir(serial int) string {
	return filepath.Join(s.root, strconv.Itoa(serial))
}

// SaveReply writes the raw RFC 822 message and returns its path
func (s *Store) SaveReply(serial int, messageID string, raw []byte) (string, error) {
	dir := s.BookingDir(serial)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	path := filepath.Join(dir, sanitizeFilename(messageID)+".eml")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}
	return path, nil
}

// GetReply reads a raw message back
func (s *Store) GetReply(serial int, messageID string) ([]byte, error) {
	path := filepath.Join(s.BookingDir(serial), sanitizeFilename(messageID)+".eml")
	return readFile(path)
}

// SaveVerdict writes the classification next to the raw message
func (s *Store) SaveVerdict(serial int, messageID string, verdict interface{}) (string, error) {
	dir := s.BookingDir(serial)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	path := filepath.Join(dir, sanitizeFilename(messageID)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}
	return path, nil
}

// ReadPath reads an archived file by path, refusing paths outside the root
func (s *Store) ReadPath(path string) ([]byte, error) {
	if err := s.ValidatePath(path); err != nil {
		return nil, err
	}
	return readFile(path)
}

// ValidatePath checks that path lies inside the archive root
func (s *Store) ValidatePath(path string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return ErrPathOutsideArchive
	}
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return ErrPathOutsideArchive
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return ErrPathOutsideArchive
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileReadFailed, err.Error())
	}
	return content, nil
}

// sanitizeFilename turns a Message-ID into a safe file name
func sanitizeFilename(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "<>")
	if name == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
	)
	name = replacer.Replace(name)
	if name == "." || name == ".." {
		return "unknown"
	}
	return name
}
