package flatfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/flatboard/pkg/logger"
	"github.com/okian/flatboard/pkg/metrics"
)

// ErrNoChange aborts an Update without rewriting the file. Update returns nil.
var ErrNoChange = errors.New("no change")

const maxLineBytes = 1 << 20

// Store runs whole-file transactions against one flat file. A single mutex
// serializes every read and rewrite, so a reader never sees a partial write.
type Store struct {
	path          string
	mu            sync.Mutex
	atomicRewrite bool
	perm          os.FileMode
	log           logger.Logger
}

// NewStore creates a Store for path. The file is not touched until Ensure or
// the first transaction.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:          path,
		atomicRewrite: true,
		perm:          0o644,
		log:           logger.Get().Named("filestore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Ensure creates the parent directory and an empty file when missing.
func (s *Store) Ensure(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", s.path, err)
	}
	s.log.Info(ctx, "created store file", logger.String("path", s.path))
	return true, nil
}

// View reads every line under the lock and hands them to fn. Terminators are
// stripped; empty lines are kept.
func (s *Store) View(ctx context.Context, fn func(lines []string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.read()
	if err == nil {
		err = fn(lines)
	}
	s.observe("view", start, err)
	return err
}

// Update reads every line under the lock, lets fn produce the replacement
// set and writes it back in full. Nothing is written when the read or fn
// fails. Returning ErrNoChange from fn skips the write.
func (s *Store) Update(ctx context.Context, fn func(lines []string) ([]string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.update(fn)
	if errors.Is(err, ErrNoChange) {
		err = nil
	}
	s.observe("update", start, err)
	return err
}

func (s *Store) update(fn func(lines []string) ([]string, error)) error {
	lines, err := s.read()
	if err != nil {
		return err
	}
	out, err := fn(lines)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, l := range out {
		buf.WriteString(l)
		buf.WriteString(Terminator)
	}
	return s.write(buf.Bytes())
}

// ViewOrAppend reads every line under the lock. When fn returns a non-empty
// line it is appended before the lock is released, so a lookup and the
// creation that follows a miss cannot interleave with another writer.
func (s *Store) ViewOrAppend(ctx context.Context, fn func(lines []string) (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.read()
	var line string
	if err == nil {
		line, err = fn(lines)
	}
	if err == nil && line != "" {
		err = s.append(line)
	}
	s.observe("view_append", start, err)
	return err
}

// Append adds one line at the end of the file.
func (s *Store) Append(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.append(line)
	s.observe("append", start, err)
	return err
}

func (s *Store) append(line string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.perm)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := f.WriteString(line + Terminator); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return f.Close()
}

func (s *Store) read() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return lines, nil
}

func (s *Store) write(data []byte) error {
	if !s.atomicRewrite {
		if err := os.WriteFile(s.path, data, s.perm); err != nil {
			return fmt.Errorf("rewrite %s: %w", s.path, err)
		}
		return nil
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("write %s: %w", tmpName, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", tmpName, err))
	}
	if err := tmp.Chmod(s.perm); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	metrics.RecordTransaction(op, err == nil, float64(time.Since(start).Microseconds())/1000)
}
