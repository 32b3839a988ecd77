package refund

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/kigawas/certifier-website/common"
	"github.com/kigawas/certifier-website/storage"
)

// Refunder issues the on-chain refund for one pending entry and returns the
// submitted tx hash.
type Refunder interface {
	Refund(ctx context.Context, entry common.RefundEntry) (string, error)
}

// Reconciler sweeps the pending-refund queue. At most one sweep runs at a
// time per process; a trigger arriving mid-sweep is dropped. Entries are
// removed only after a confirmed submission, so the queue delivers at least
// once and failed entries are retried on the next sweep.
type Reconciler struct {
	queue    *storage.RefundQueue
	refunder Refunder
	activity *ActivityStorage

	sweeping int32
}

func NewReconciler(queue *storage.RefundQueue, refunder Refunder, activity *ActivityStorage) *Reconciler {
	return &Reconciler{
		queue:    queue,
		refunder: refunder,
		activity: activity,
	}
}

// Sweep processes every pending entry once. Calling it while a sweep is in
// progress is a no-op.
func (self *Reconciler) Sweep(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&self.sweeping, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&self.sweeping, 0)

	entries, err := self.queue.All(ctx)
	if err != nil {
		log.Printf("Refund sweep: can not scan queue: %s", err.Error())
		return
	}
	if len(entries) == 0 {
		return
	}
	log.Printf("Refund sweep: %d pending entries", len(entries))
	for _, entry := range entries {
		self.process(ctx, entry)
	}
}

func (self *Reconciler) process(ctx context.Context, entry common.RefundEntry) {
	submitted, err := self.activity.Submitted(entry)
	if err != nil {
		log.Printf("Refund sweep: can not read activity for %s/%s: %s", entry.Who, entry.Origin, err.Error())
		return
	}
	if submitted {
		// tx already went out on an earlier sweep, only the queue
		// removal is left to redo
		if err := self.queue.Remove(ctx, entry); err != nil {
			log.Printf("Refund sweep: can not remove %s/%s: %s", entry.Who, entry.Origin, err.Error())
		}
		return
	}

	txHash, err := self.refunder.Refund(ctx, entry)
	if err != nil {
		// leave the entry for the next sweep
		log.Printf("Refund sweep: refund of %s to %s failed: %s", entry.Who, entry.Origin, err.Error())
		return
	}
	log.Printf("Refund sweep: refunded %s to %s in tx %s", entry.Who, entry.Origin, txHash)
	if err := self.activity.Record(entry, txHash); err != nil {
		log.Printf("Refund sweep: can not record activity for %s/%s: %s", entry.Who, entry.Origin, err.Error())
	}
	if err := self.queue.Remove(ctx, entry); err != nil {
		log.Printf("Refund sweep: can not remove %s/%s: %s", entry.Who, entry.Origin, err.Error())
	}
}

// Run consumes runner triggers until ctx is done. It is meant to be called
// on its own goroutine.
func (self *Reconciler) Run(ctx context.Context, runner Runner) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-runner.GetRefundTicker():
			self.Sweep(ctx)
		}
	}
}
