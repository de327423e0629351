package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Имена задач истечения срока.
const (
	JobRequestExpireScan = "request_expire_scan"
	JobOfferExpireScan   = "offer_expire_scan"
	JobAll               = "all"
)

// Sweeper запускает задачи истечения срока заявок и предложений.
type Sweeper struct {
	Requests *RequestService
	Offers   *OfferService
}

// RunJob выполняет задачу по имени и возвращает число переведенных строк по задачам.
func (s *Sweeper) RunJob(ctx context.Context, job string) (map[string]int, error) {
	counts := make(map[string]int)
	switch job {
	case JobRequestExpireScan, JobOfferExpireScan, JobAll:
	default:
		return nil, fmt.Errorf("unknown job %q", job)
	}

	if job == JobRequestExpireScan || job == JobAll {
		n, err := s.Requests.ExpireSweep(ctx)
		if err != nil {
			return counts, err
		}
		counts[JobRequestExpireScan] = n
	}
	if job == JobOfferExpireScan || job == JobAll {
		n, err := s.Offers.ExpireSweep(ctx)
		if err != nil {
			return counts, err
		}
		counts[JobOfferExpireScan] = n
	}
	return counts, nil
}

// Run выполняет обе задачи каждые interval до отмены контекста.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := s.RunJob(ctx, JobAll)
			if err != nil {
				log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			log.Debug().
				Int(JobRequestExpireScan, counts[JobRequestExpireScan]).
				Int(JobOfferExpireScan, counts[JobOfferExpireScan]).
				Msg("expiry sweep finished")
		}
	}
}
