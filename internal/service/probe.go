package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/voyagen/streamplus/internal/cache"
	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/prober"
	"github.com/voyagen/streamplus/internal/store"
)

// RefreshStats probes the streams named by a background job and persists
// their statistics. Without Force only untested streams are probed.
// Individual probe failures are counted, not fatal.
func RefreshStats(ctx context.Context, s store.Store, pr prober.Prober, job cache.ProbeJob, concurrency int) (tested, failed int, err error) {
	var streams []models.Stream
	if len(job.StreamIDs) > 0 {
		for _, id := range job.StreamIDs {
			st, err := s.GetStreamByID(ctx, id)
			if err != nil {
				log.Printf("service: probe job stream %d: %v", id, err)
				continue
			}
			streams = append(streams, *st)
		}
	} else {
		streams, _, err = s.ListStreams(ctx, store.StreamFilter{AccountID: &job.AccountID})
		if err != nil {
			return 0, 0, fmt.Errorf("list streams for account %d: %w", job.AccountID, err)
		}
	}

	var need []int
	for i := range streams {
		if job.Force || !streams[i].Tested() {
			need = append(need, i)
		}
	}
	if len(need) == 0 {
		return 0, 0, nil
	}

	if concurrency < 1 {
		concurrency = 1
	}
	pool, perr := ants.NewPool(concurrency)
	if perr != nil {
		return 0, 0, fmt.Errorf("probe pool: %w", perr)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	probe := func(i int) {
		stream := &streams[i]
		stats, err := pr.Probe(ctx, stream)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
			log.Printf("service: probe stream %d (%s): %v", stream.ID, stream.Name, err)
			return
		}
		if serr := s.UpdateStreamStats(ctx, stream.ID, stats); serr != nil {
			failed++
			log.Printf("service: persist stats for stream %d: %v", stream.ID, serr)
			return
		}
		tested++
	}
	for _, i := range need {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			probe(i)
		}); err != nil {
			wg.Done()
			probe(i)
		}
	}
	wg.Wait()
	return tested, failed, nil
}
