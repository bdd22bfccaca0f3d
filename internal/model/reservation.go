package model

import "github.com/paulmach/orb"

// StateWait is the state every reservation starts in.  Only reservations
// still in this state take part in proximity matching.
const StateWait = "wait"

// Column limits of the reservation table.
const (
    MaxUserIDLen = 30
    MaxStateLen  = 10
)

// Reservation is a user's claim on a geographic location.  It mirrors a
// row of the reservation table; the json tags keep the column names so
// responses carry the same shape as the stored rows.
//
// Fields:
//  ID        – primary key, assigned by the store on insert.
//  UserID    – user who created the reservation.
//  Longitude – longitude in degrees, fixed at creation.
//  Latitude  – latitude in degrees, fixed at creation.
//  State     – free-form lifecycle state, "wait" on creation.
type Reservation struct {
    ID        int64   `db:"id" json:"id"`               // reservation.id
    UserID    string  `db:"user_id" json:"user_id"`     // reservation.user_id
    Longitude float64 `db:"longitude" json:"longitude"` // reservation.longitude
    Latitude  float64 `db:"latitude" json:"latitude"`   // reservation.latitude
    State     string  `db:"state" json:"state"`         // reservation.state
}

// Point returns the reservation's location as an orb point (lon, lat).
func (r Reservation) Point() orb.Point {
    return orb.Point{r.Longitude, r.Latitude}
}
