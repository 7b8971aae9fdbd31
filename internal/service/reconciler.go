// internal/service/reconciler.go
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/model"
	"github.com/mantlz/campaigns-backend/internal/repository"
)

// Reconciler repairs campaigns stranded in sending by a crashed worker. It
// periodically rescans sending campaigns: ones with pending recipients get
// their batch loop resumed, ones without are reduced to a terminal status.
// The pass is idempotent and safe alongside normal sends because recipient
// fetches key on pending status only.
type Reconciler struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Dispatcher *Dispatcher
	Interval   time.Duration
	Log        zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// Start launches the reconcile loop, running one pass immediately.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneChan)

	if err := r.RunOnce(ctx); err != nil {
		r.Log.Error().Err(err).Msg("reconcile pass failed")
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.Log.Error().Err(err).Msg("reconcile pass failed")
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop and waits for the current pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	<-r.doneChan
}

// RunOnce performs a single reconcile pass.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	ids, err := r.Campaigns.ListIDsByStatus(ctx, model.CampaignSending)
	if err != nil {
		return err
	}

	for _, id := range ids {
		counts, err := r.Recipients.CountByStatus(ctx, id)
		if err != nil {
			r.Log.Error().Err(err).Int64("campaign_id", id).Msg("reconcile: count failed")
			continue
		}

		if counts[model.RecipientPending] > 0 {
			r.Log.Info().Int64("campaign_id", id).
				Int("pending", counts[model.RecipientPending]).
				Msg("resuming stuck campaign")
			if err := r.Dispatcher.Run(ctx, id); err != nil {
				r.Log.Error().Err(err).Int64("campaign_id", id).Msg("reconcile: resume failed")
			}
			continue
		}

		// Nothing pending: the batch loop finished but the reduction was lost.
		if err := r.Dispatcher.Reduce(ctx, id); err != nil {
			r.Log.Error().Err(err).Int64("campaign_id", id).Msg("reconcile: reduce failed")
		}
	}
	return nil
}
