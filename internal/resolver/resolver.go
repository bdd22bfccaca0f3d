// Package resolver maps one reservation request onto exactly one store
// operation and normalizes the outcome.  Requests arrive already parsed
// into a variant (see ParseQuery); the resolver never guesses from raw
// input.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/geo-reservation/internal/model"
	"github.com/iliyamo/geo-reservation/internal/queue"
	"github.com/iliyamo/geo-reservation/internal/repository"
)

// Operation names a store operation chosen by the resolver.
type Operation string

const (
	OperationCreate         Operation = repository.OpCreate
	OperationUpdateState    Operation = repository.OpUpdateState
	OperationGetByID        Operation = repository.OpGetByID
	OperationGetByUserID    Operation = repository.OpGetByUserID
	OperationGetByProximity Operation = repository.OpGetByProximity
	OperationGetAll         Operation = repository.OpGetAll
)

// Store is the set of reservation store operations the resolver relies on.
type Store interface {
	Create(ctx context.Context, userID string, longitude, latitude float64) (int64, error)
	UpdateState(ctx context.Context, id int64, state string) (repository.UpdateResult, error)
	GetByID(ctx context.Context, id int64) ([]model.Reservation, error)
	GetByUserID(ctx context.Context, userID string) ([]model.Reservation, error)
	GetByProximity(ctx context.Context, longitude, latitude float64) ([]model.Reservation, error)
	GetAll(ctx context.Context) ([]model.Reservation, error)
}

// EventPublisher receives lifecycle events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Result is the outcome of one resolved request.  Exactly one of the value
// fields is meaningful, selected by Operation.
type Result struct {
	Operation    Operation
	ID           int64                   // create
	Ack          repository.UpdateResult // update state
	Reservations []model.Reservation     // lookups
}

// Resolver executes requests against the store.
type Resolver struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a Resolver.  A nil publisher disables event emission.
func New(store Store, publisher EventPublisher, logger *slog.Logger) *Resolver {
	if store == nil {
		panic("nil store passed to resolver.New")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Resolve runs the store operation that matches req.  Store failures are
// logged and returned as they are.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	res, err := r.dispatch(ctx, req)
	r.observe(ctx, req.operation(), err)
	if err != nil {
		return Result{}, err
	}
	r.emit(ctx, req, res)
	return res, nil
}

func (r *Resolver) dispatch(ctx context.Context, req Request) (Result, error) {
	res := Result{Operation: req.operation()}
	var err error
	switch q := req.(type) {
	case CreateRequest:
		res.ID, err = r.store.Create(ctx, q.UserID, q.Longitude, q.Latitude)
	case UpdateStateRequest:
		res.Ack, err = r.store.UpdateState(ctx, q.ID, q.State)
	case GetByIDRequest:
		res.Reservations, err = r.store.GetByID(ctx, q.ID)
	case GetByUserRequest:
		res.Reservations, err = r.store.GetByUserID(ctx, q.UserID)
	case ProximityRequest:
		res.Reservations, err = r.store.GetByProximity(ctx, q.Longitude, q.Latitude)
	default:
		return Result{}, fmt.Errorf("unsupported request %T", req)
	}
	return res, err
}

// ListAll returns every reservation.
func (r *Resolver) ListAll(ctx context.Context) ([]model.Reservation, error) {
	rows, err := r.store.GetAll(ctx)
	r.observe(ctx, OperationGetAll, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Resolver) observe(ctx context.Context, op Operation, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.loggerFrom(ctx).Error("store operation failed",
			slog.String("operation", string(op)),
			slog.Any("error", err))
	}
	operationsTotal.WithLabelValues(string(op), outcome).Inc()
}

// emit publishes a lifecycle event for writes.  Publishing is best effort:
// failures are logged and never change the request outcome.
func (r *Resolver) emit(ctx context.Context, req Request, res Result) {
	if r.publisher == nil {
		return
	}
	ev := queue.ReservationEvent{OccurredAt: r.now().UTC().Format(time.RFC3339)}
	switch q := req.(type) {
	case CreateRequest:
		ev.Type = queue.EventCreated
		ev.ReservationID = res.ID
		ev.UserID = q.UserID
		ev.Longitude = q.Longitude
		ev.Latitude = q.Latitude
		ev.State = model.StateWait
	case UpdateStateRequest:
		ev.Type = queue.EventStateChanged
		ev.ReservationID = q.ID
		ev.State = q.State
		ev.AffectedRows = res.Ack.AffectedRows
	default:
		return
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.loggerFrom(ctx).Warn("publish reservation event failed",
			slog.String("type", ev.Type),
			slog.Int64("reservation_id", ev.ReservationID),
			slog.Any("error", err))
	}
}

// loggerKey is the context key under which a request-scoped logger may be
// stored by the transport.
type loggerKey struct{}

// WithLogger returns a context carrying a request-scoped logger.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func (r *Resolver) loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return r.logger
}
