package filepersist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

const (
	defaultMaxSegmentSize = 16 * 1024 * 1024
	segmentFileExt        = ".shadow"
)

var segmentFileNamePattern = regexp.MustCompile(`^segment-(\d+)\.shadow$`)

// segmentWriter appends persisted-block records into a rotating sequence of
// on-disk segment files. Adapted from a WAL segment manager: the role here
// is the same (bound any one file's size, roll to a fresh one when full),
// but the payload is block snapshots instead of write-ahead log entries.
type segmentWriter struct {
	mu             sync.Mutex
	active         *os.File
	activeID       int
	dir            string
	maxSegmentSize int64
}

type segmentEntry struct {
	id   int
	name string
}

type segmentEntries []segmentEntry

func (a segmentEntries) Len() int           { return len(a) }
func (a segmentEntries) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a segmentEntries) Less(i, j int) bool { return a[i].id < a[j].id }

func newSegmentWriter(dir string, maxSegmentSize int64) (*segmentWriter, error) {
	if maxSegmentSize <= 0 {
		maxSegmentSize = defaultMaxSegmentSize
	}

	sw := &segmentWriter{dir: dir, maxSegmentSize: maxSegmentSize}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filepersist: failed to create segment dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("filepersist: failed to read segment dir: %w", err)
	}

	var found segmentEntries
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if filepath.Ext(e.Name()) != segmentFileExt {
			continue
		}
		matches := segmentFileNamePattern.FindStringSubmatch(e.Name())
		if len(matches) != 2 {
			continue
		}
		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		found = append(found, segmentEntry{id: id, name: e.Name()})
	}

	if len(found) == 0 {
		if err := sw.rotate(); err != nil {
			return nil, fmt.Errorf("filepersist: failed to create first segment: %w", err)
		}
		return sw, nil
	}

	sort.Sort(found)
	sw.activeID = found[len(found)-1].id

	active, err := os.OpenFile(sw.idToPath(sw.activeID), os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filepersist: failed to open active segment: %w", err)
	}
	sw.active = active

	return sw, nil
}

func (s *segmentWriter) idToPath(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("segment-%04d%s", id, segmentFileExt))
}

func (s *segmentWriter) rotate() error {
	if s.active != nil {
		if err := s.active.Close(); err != nil {
			return fmt.Errorf("filepersist: failed to close previous segment: %w", err)
		}
	}

	s.activeID++

	file, err := os.Create(s.idToPath(s.activeID))
	if err != nil {
		return err
	}
	s.active = file

	return nil
}

// append writes fn's output to the active segment, rotating first if n more
// bytes would exceed the segment size cap, then syncs the file.
func (s *segmentWriter) append(n int, fn func(w *os.File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return errors.New("filepersist: segment writer not initialized")
	}

	stat, err := s.active.Stat()
	if err != nil {
		return fmt.Errorf("filepersist: failed to stat active segment: %w", err)
	}

	if stat.Size()+int64(n) > s.maxSegmentSize {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("filepersist: failed to rotate segment: %w", err)
		}
	}

	if err := fn(s.active); err != nil {
		return err
	}

	return s.active.Sync()
}

func (s *segmentWriter) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil
	}
	if err := s.active.Close(); err != nil {
		return fmt.Errorf("filepersist: failed to close active segment: %w", err)
	}
	return nil
}
