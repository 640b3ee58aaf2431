package idempotency

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/config"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
	pkgerrors "github.com/rameshsbr/webmanagement-p2p-sub000/pkg/errors"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/metrics"
)

// scopeKeyConstraint matches the unique index created by the migrations.
const scopeKeyConstraint = "uq_idempotency_scope_key"

// WorkFunc is the unit of work the guard protects. It receives the winner's
// transaction; everything it writes commits atomically with the COMPLETED
// mark, so a replayed result always describes committed state.
type WorkFunc func(ctx context.Context, tx *gorm.DB) (any, error)

// TxRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Guard wraps a unit of work in an at-most-once envelope keyed by
// (scope, idempotency key).
type Guard interface {
	// Run executes work at most once per (scope, key). The second return
	// value reports whether the result was replayed from a previous
	// execution. An empty key disables deduplication.
	Run(ctx context.Context, scope, key string, payload []byte, work WorkFunc) (json.RawMessage, bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type guard struct {
	repo    Repository
	tx      TxRunner
	cfg     config.PaymentsConfig
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
	now     func() time.Time
}

// NewGuard wires an idempotency guard. Metrics are optional.
func NewGuard(repo Repository, tx TxRunner, cfg config.PaymentsConfig, logg *logger.Logger, pm *metrics.PaymentMetrics) (Guard, error) {
	if repo == nil {
		return nil, fmt.Errorf("idempotency repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &guard{
		repo:    repo,
		tx:      tx,
		cfg:     cfg,
		logg:    logg,
		metrics: pm,
		now:     time.Now,
	}, nil
}

func (g *guard) Run(ctx context.Context, scope, key string, payload []byte, work WorkFunc) (json.RawMessage, bool, error) {
	if work == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "work function required")
	}
	if scope == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "idempotency scope required")
	}

	// No key means the caller opted out of deduplication.
	if key == "" {
		result, err := g.execute(ctx, work)
		return result, false, err
	}

	hash := fingerprint(scope, key, payload)

	existing, err := g.repo.GetByScopeKey(ctx, scope, key)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading idempotency record")
	}
	if existing != nil {
		result, replayed, done, err := g.resolveExisting(ctx, scope, key, hash, existing)
		if done {
			return result, replayed, err
		}
	}

	record := &models.IdempotencyRecord{
		Scope:       scope,
		Key:         key,
		State:       enums.IdempotencyStateInProgress,
		RequestHash: hash,
		ExpiresAt:   g.now().Add(g.cfg.IdempotencyTTL),
	}
	// The reservation commits on its own so concurrent callers see it via
	// the unique constraint rather than transaction visibility rules.
	if err := g.repo.Insert(ctx, record); err != nil {
		if !isScopeKeyConflict(err) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserving idempotency key")
		}
		// Lost the insert race; wait for the winner's result.
		return g.awaitWinner(ctx, scope, key, hash)
	}

	result, err := g.executeReserved(ctx, scope, key, work)
	if err != nil {
		return nil, false, err
	}
	g.observe("executed")
	return result, false, nil
}

func (g *guard) PurgeExpired(ctx context.Context) (int64, error) {
	return g.repo.DeleteExpired(ctx, g.now())
}

// resolveExisting inspects a pre-existing record. done=false means the
// record was stale and has been cleared, so the caller should attempt a
// fresh reservation.
func (g *guard) resolveExisting(ctx context.Context, scope, key, hash string, record *models.IdempotencyRecord) (json.RawMessage, bool, bool, error) {
	if g.now().After(record.ExpiresAt) {
		if err := g.repo.Delete(ctx, scope, key); err != nil {
			return nil, false, true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing expired idempotency record")
		}
		return nil, false, false, nil
	}

	if record.RequestHash != hash {
		return nil, false, true, pkgerrors.New(pkgerrors.CodeIdempotencyReused, "idempotency key reused with a different request")
	}

	if record.State == enums.IdempotencyStateCompleted {
		g.observe("replayed")
		return record.Result, true, true, nil
	}

	result, replayed, err := g.awaitWinner(ctx, scope, key, hash)
	return result, replayed, true, err
}

func (g *guard) executeReserved(ctx context.Context, scope, key string, work WorkFunc) (json.RawMessage, error) {
	var result json.RawMessage
	err := g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := work(ctx, tx)
		if err != nil {
			return err
		}
		serialized, err := json.Marshal(out)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing idempotent result")
		}
		result = serialized
		return g.repo.WithTx(tx).MarkCompleted(ctx, scope, key, serialized)
	})
	if err != nil {
		// Failures are not cached; clearing the reservation lets a retry
		// with the same key execute again.
		if delErr := g.repo.Delete(ctx, scope, key); delErr != nil {
			g.logg.Error(ctx, "clearing idempotency reservation after failure", delErr)
		}
		return nil, err
	}
	return result, nil
}

func (g *guard) execute(ctx context.Context, work WorkFunc) (json.RawMessage, error) {
	var result json.RawMessage
	err := g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := work(ctx, tx)
		if err != nil {
			return err
		}
		serialized, err := json.Marshal(out)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing idempotent result")
		}
		result = serialized
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *guard) awaitWinner(ctx context.Context, scope, key, hash string) (json.RawMessage, bool, error) {
	deadline := g.now().Add(g.cfg.IdempotencyWaitBound)
	for {
		record, err := g.repo.GetByScopeKey(ctx, scope, key)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "polling idempotency record")
		}
		if record != nil && record.RequestHash != hash {
			return nil, false, pkgerrors.New(pkgerrors.CodeIdempotencyReused, "idempotency key reused with a different request")
		}
		if record != nil && record.State == enums.IdempotencyStateCompleted {
			g.observe("replayed")
			return record.Result, true, nil
		}
		// A vanished record means the winner failed and cleared its
		// reservation; the caller's retry semantics apply, so surface the
		// in-progress error and let the caller retry.
		if g.now().After(deadline) || record == nil {
			g.observe("in_progress")
			return nil, false, pkgerrors.New(pkgerrors.CodeIdempotencyInProgress, "request with this idempotency key is still in progress")
		}
		select {
		case <-ctx.Done():
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "waiting for idempotent result")
		case <-time.After(g.cfg.IdempotencyPollInterval):
		}
	}
}

func (g *guard) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.ObserveIdempotency(outcome)
	}
}

func isScopeKeyConflict(err error) bool {
	return db.IsUniqueViolation(err, scopeKeyConstraint)
}

func fingerprint(scope, key string, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
