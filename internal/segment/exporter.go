package segment

import (
	"image"
	"sync"

	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/imaging"
)

type exportJob struct {
	slot   int
	index  int
	roi    *image.NRGBA
	offset image.Point
	mask   detection.BinaryMask
}

type exportResult struct {
	path string
	err  error
}

// exporter builds masked crops and hands them to a sink on a fixed number of
// goroutines. Results land in a slice indexed by job slot, so no locking is
// needed to collect them.
type exporter struct {
	sink    ArtifactSink
	jobs    chan exportJob
	results []exportResult
	wg      sync.WaitGroup
}

func newExporter(sink ArtifactSink, workers, n int) *exporter {
	if workers < 1 {
		workers = 1
	}
	e := &exporter{
		sink:    sink,
		jobs:    make(chan exportJob, workers),
		results: make([]exportResult, n),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	return e
}

func (e *exporter) work() {
	defer e.wg.Done()
	for j := range e.jobs {
		crop := imaging.MaskedCrop(j.roi, j.offset, j.mask)
		path, err := e.sink.WriteInstance(j.index, crop)
		if err != nil {
			err = writeError(err)
		}
		e.results[j.slot] = exportResult{path: path, err: err}
	}
}

func (e *exporter) submit(j exportJob) { e.jobs <- j }

// wait closes the queue and blocks until every crop is written.
func (e *exporter) wait() []exportResult {
	close(e.jobs)
	e.wg.Wait()
	return e.results
}
