package repository

import (
    "context"

    "github.com/jmoiron/sqlx"

    "github.com/iliyamo/geo-reservation/internal/geo"
    "github.com/iliyamo/geo-reservation/internal/model"
)

// ReservationRepo provides the store operations on the reservation table.
// It keeps no state besides the database handle: every call round-trips to
// the backing store, and concurrent calls are serialized or pipelined by
// the driver.  There is no locking here; concurrent state updates on the
// same id are last-write-wins.
type ReservationRepo struct {
    db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// UpdateResult acknowledges a state update.  AffectedRows is zero when the
// id does not exist; that is not an error.
type UpdateResult struct {
    AffectedRows int64 `json:"affectedRows"`
}

const selectColumns = `SELECT id, user_id, longitude, latitude, state FROM reservation`

// Create inserts a new reservation in the "wait" state and returns the
// identifier assigned by the store.
func (r *ReservationRepo) Create(ctx context.Context, userID string, longitude, latitude float64) (int64, error) {
    const q = `INSERT INTO reservation (user_id, longitude, latitude, state) VALUES (?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, userID, longitude, latitude, model.StateWait)
    if err != nil {
        return 0, storeErr(OpCreate, err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return 0, storeErr(OpCreate, err)
    }
    return id, nil
}

// UpdateState sets the state column of the row with the given id.  No
// existence check is made before or after the update.
func (r *ReservationRepo) UpdateState(ctx context.Context, id int64, state string) (UpdateResult, error) {
    const q = `UPDATE reservation SET state = ? WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, state, id)
    if err != nil {
        return UpdateResult{}, storeErr(OpUpdateState, err)
    }
    n, err := result.RowsAffected()
    if err != nil {
        return UpdateResult{}, storeErr(OpUpdateState, err)
    }
    return UpdateResult{AffectedRows: n}, nil
}

// GetByID returns the reservation with the given id as a zero-or-one
// element slice.
func (r *ReservationRepo) GetByID(ctx context.Context, id int64) ([]model.Reservation, error) {
    return r.selectRows(ctx, OpGetByID, selectColumns+` WHERE id = ?`, id)
}

// GetByUserID returns every reservation created by userID in store order.
func (r *ReservationRepo) GetByUserID(ctx context.Context, userID string) ([]model.Reservation, error) {
    return r.selectRows(ctx, OpGetByUserID, selectColumns+` WHERE user_id = ?`, userID)
}

// GetByProximity returns at most one waiting reservation whose coordinates
// fall inside the proximity box around (longitude, latitude).  When several
// rows qualify the first one in store order wins; there is no distance
// ranking.
func (r *ReservationRepo) GetByProximity(ctx context.Context, longitude, latitude float64) ([]model.Reservation, error) {
    b := geo.ProximityBound(longitude, latitude)
    const where = ` WHERE longitude BETWEEN ? AND ? AND latitude BETWEEN ? AND ? AND state = ? LIMIT 1`
    return r.selectRows(ctx, OpGetByProximity, selectColumns+where,
        b.Min.Lon(), b.Max.Lon(), b.Min.Lat(), b.Max.Lat(), model.StateWait)
}

// GetAll returns every reservation, unordered.
func (r *ReservationRepo) GetAll(ctx context.Context) ([]model.Reservation, error) {
    return r.selectRows(ctx, OpGetAll, selectColumns)
}

// selectRows runs a row query and always returns a non-nil slice on
// success so empty results encode as [] rather than null.
func (r *ReservationRepo) selectRows(ctx context.Context, op, q string, args ...interface{}) ([]model.Reservation, error) {
    out := []model.Reservation{}
    if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
        return nil, storeErr(op, err)
    }
    return out, nil
}
