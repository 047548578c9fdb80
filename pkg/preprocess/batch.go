package preprocess

import (
	"errors"
	"fmt"
	"sync"

	"github.com/menta2k/image-tiler/pkg/tensor"
)

// PreprocessBatch preprocesses independent images concurrently using up to
// workers goroutines. The configuration is shared read-only across workers;
// images share no state, so no synchronization beyond result collection is
// needed. Results align with the input slice by index; entries whose image
// failed are nil and the failures are joined into the returned error.
func PreprocessBatch(images []tensor.Tensor, cfg Config, workers int) ([]*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(images) {
		workers = len(images)
	}

	results := make([]*Result, len(images))
	errs := make([]error, len(images))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				res, err := Preprocess(images[i], cfg)
				if err != nil {
					errs[i] = fmt.Errorf("image %d: %w", i, err)
					continue
				}
				results[i] = res
			}
		}()
	}

	for i := range images {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return results, errors.Join(errs...)
}
