package segment

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/mask-overlay/internal/config"
	img "github.com/ironsheep/mask-overlay/internal/imaging"
)

// ArtifactSink receives the images a run produces. WriteInstance is called
// from several goroutines at once; WriteComposite once per run. Both return
// where the image went.
type ArtifactSink interface {
	WriteInstance(index int, m image.Image) (string, error)
	WriteComposite(m image.Image) (string, error)
}

// DirSink writes artifacts as files into one directory.
type DirSink struct {
	Dir           string
	Pattern       string // crop file name, one %d
	CompositeName string
	JPEGQuality   int
}

// NewDirSink creates dir if needed and names files from cfg.
func NewDirSink(dir string, cfg config.Config) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithMessagef(ErrArtifactWrite, "create %s: %v", dir, err)
	}
	return &DirSink{
		Dir:           dir,
		Pattern:       cfg.ArtifactPattern,
		CompositeName: cfg.CompositeName,
		JPEGQuality:   cfg.JPEGQuality,
	}, nil
}

// WriteInstance saves a crop as Pattern with index filled in.
func (s *DirSink) WriteInstance(index int, m image.Image) (string, error) {
	return s.save(fmt.Sprintf(s.Pattern, index), m)
}

// WriteComposite saves the annotated image as CompositeName.
func (s *DirSink) WriteComposite(m image.Image) (string, error) {
	return s.save(s.CompositeName, m)
}

func (s *DirSink) save(name string, m image.Image) (string, error) {
	path := filepath.Join(s.Dir, name)
	if err := img.Save(path, m, s.JPEGQuality); err != nil {
		return path, errors.WithMessagef(ErrArtifactWrite, "%s: %v", path, err)
	}
	return path, nil
}

// MemorySink keeps artifacts in memory. Useful for tests and for callers
// that encode results themselves.
type MemorySink struct {
	mu        sync.Mutex
	instances map[int]image.Image
	composite *image.NRGBA
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{instances: make(map[int]image.Image)}
}

// WriteInstance stores m under index.
func (s *MemorySink) WriteInstance(index int, m image.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[index] = m
	return fmt.Sprintf("mem:instance/%d", index), nil
}

// WriteComposite stores a copy of m; the canvas may keep changing after.
func (s *MemorySink) WriteComposite(m image.Image) (string, error) {
	var c *image.NRGBA
	if m.Bounds().Empty() {
		c = &image.NRGBA{}
	} else {
		c = imaging.Clone(m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composite = c
	return "mem:composite", nil
}

// Instance returns the crop stored under index.
func (s *MemorySink) Instance(index int) (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.instances[index]
	return m, ok
}

// Instances returns how many crops were stored.
func (s *MemorySink) Instances() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// Composite returns the last composite written, or nil.
func (s *MemorySink) Composite() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composite
}
