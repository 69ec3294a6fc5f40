package balance

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const reconcileTimeout = 30 * time.Second

type BalanceRepairer interface {
	ReconcileBalances(ctx context.Context) (int64, error)
}

// Reconciler periodically rewrites member balances that drifted away from
// credit minus spent.
type Reconciler struct {
	repo     BalanceRepairer
	interval time.Duration
	log      *logrus.Logger
}

func NewReconciler(repo BalanceRepairer, interval time.Duration, log *logrus.Logger) *Reconciler {
	return &Reconciler{repo: repo, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("stopping balance reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	fixed, err := r.repo.ReconcileBalances(ctx)
	if err != nil {
		r.log.WithError(err).Error("failed to reconcile balances")
		return 0
	}

	if fixed > 0 {
		r.log.WithField("fixed", fixed).Warn("repaired drifted member balances")
	} else {
		r.log.Debug("member balances consistent")
	}
	return fixed
}
