package feature

import (
	"context"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/estimator"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

// estimatorTTL is the retention for Hawkes/CUSUM/digest/rolling-stats state
// (spec §6: "24h each").
const estimatorTTL = 24 * time.Hour

// EstimatorStore hydrates and persists the per-token online estimators
// through the shared store, within a single job (spec §5: "hydrated from and
// persisted back to the store within a job").
type EstimatorStore struct {
	store store.Store
}

func NewEstimatorStore(s store.Store) *EstimatorStore { return &EstimatorStore{store: s} }

func (e *EstimatorStore) LoadHawkes(ctx context.Context, token string) (*estimator.Hawkes, error) {
	raw, ok, err := e.store.Get(ctx, store.Keys.HawkesState(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return estimator.NewHawkes(), nil
	}
	var h estimator.Hawkes
	if err := estimator.Deserialize(raw, &h); err != nil {
		return estimator.NewHawkes(), nil
	}
	return &h, nil
}

func (e *EstimatorStore) SaveHawkes(ctx context.Context, token string, h *estimator.Hawkes) error {
	raw, err := estimator.Serialize(h)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, store.Keys.HawkesState(token), raw, estimatorTTL)
}

func (e *EstimatorStore) LoadCUSUM(ctx context.Context, token, metric string) (*estimator.CUSUM, error) {
	raw, ok, err := e.store.Get(ctx, store.Keys.CUSUMState(token, metric))
	if err != nil {
		return nil, err
	}
	if !ok {
		return estimator.NewCUSUM(estimator.DefaultCUSUMThreshold), nil
	}
	var c estimator.CUSUM
	if err := estimator.Deserialize(raw, &c); err != nil {
		return estimator.NewCUSUM(estimator.DefaultCUSUMThreshold), nil
	}
	return &c, nil
}

func (e *EstimatorStore) SaveCUSUM(ctx context.Context, token, metric string, c *estimator.CUSUM) error {
	raw, err := estimator.Serialize(c)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, store.Keys.CUSUMState(token, metric), raw, estimatorTTL)
}

func (e *EstimatorStore) LoadDigest(ctx context.Context, token string) (*estimator.Digest, error) {
	raw, ok, err := e.store.Get(ctx, store.Keys.TradeSizeDigest(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return estimator.NewDigest(), nil
	}
	var d estimator.Digest
	if err := estimator.Deserialize(raw, &d); err != nil {
		return estimator.NewDigest(), nil
	}
	return &d, nil
}

func (e *EstimatorStore) SaveDigest(ctx context.Context, token string, d *estimator.Digest) error {
	raw, err := estimator.Serialize(d)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, store.Keys.TradeSizeDigest(token), raw, estimatorTTL)
}
