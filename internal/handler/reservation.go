package handler

import (
    "errors"
    "net/http"

    "github.com/go-sql-driver/mysql"
    "github.com/labstack/echo/v4"
    "github.com/paulmach/orb/geojson"

    "github.com/iliyamo/geo-reservation/internal/model"
    "github.com/iliyamo/geo-reservation/internal/repository"
    "github.com/iliyamo/geo-reservation/internal/resolver"
)

// ReservationHandler exposes the reservation resolver over HTTP.
type ReservationHandler struct {
    Resolver *resolver.Resolver
}

// NewReservationHandler constructs a ReservationHandler and panics if the
// resolver is nil.
func NewReservationHandler(r *resolver.Resolver) *ReservationHandler {
    if r == nil {
        panic("nil resolver passed to NewReservationHandler")
    }
    return &ReservationHandler{Resolver: r}
}

// Reserve handles GET /reservation.  The query string selects exactly one
// operation:
//
//  - create       -> {"result": <id>}
//  - update state -> {"affectedRows": <n>}
//  - lookups      -> array of reservations, [] when nothing matches
//
// A request matching no operation, or carrying an unusable value, is
// answered with 400.  Store failures are answered with 500 and the driver
// message.
func (h *ReservationHandler) Reserve(c echo.Context) error {
    req, err := resolver.ParseQuery(c.QueryParams())
    if err != nil {
        return badRequest(c, err)
    }
    res, err := h.Resolver.Resolve(c.Request().Context(), req)
    if err != nil {
        return storeFailure(c, err)
    }
    switch res.Operation {
    case resolver.OperationCreate:
        return c.JSON(http.StatusOK, echo.Map{"result": res.ID})
    case resolver.OperationUpdateState:
        return c.JSON(http.StatusOK, res.Ack)
    default:
        return c.JSON(http.StatusOK, rowsOrEmpty(res.Reservations))
    }
}

// ListAll handles GET /reservationAll.
func (h *ReservationHandler) ListAll(c echo.Context) error {
    rows, err := h.Resolver.ListAll(c.Request().Context())
    if err != nil {
        return storeFailure(c, err)
    }
    return c.JSON(http.StatusOK, rowsOrEmpty(rows))
}

// GeoJSON handles GET /reservationAll.geojson and returns every reservation
// as a point feature.  The feature id is the reservation id; user_id and
// state are carried as properties.
func (h *ReservationHandler) GeoJSON(c echo.Context) error {
    rows, err := h.Resolver.ListAll(c.Request().Context())
    if err != nil {
        return storeFailure(c, err)
    }
    fc := geojson.NewFeatureCollection()
    for _, r := range rows {
        f := geojson.NewFeature(r.Point())
        f.ID = r.ID
        f.Properties["user_id"] = r.UserID
        f.Properties["state"] = r.State
        fc.Append(f)
    }
    b, err := fc.MarshalJSON()
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
    }
    return c.Blob(http.StatusOK, "application/geo+json", b)
}

func rowsOrEmpty(rows []model.Reservation) []model.Reservation {
    if rows == nil {
        return []model.Reservation{}
    }
    return rows
}

func badRequest(c echo.Context, err error) error {
    code := "invalid_request"
    if errors.Is(err, resolver.ErrValidationGap) {
        code = "validation_gap"
    }
    body := echo.Map{"error": code, "message": err.Error()}
    var fe *resolver.FieldError
    if errors.As(err, &fe) {
        body["field"] = fe.Field
    }
    return c.JSON(http.StatusBadRequest, body)
}

// storeFailure reports a store error verbatim.  MySQL errors also carry the
// server error number and SQLSTATE.
func storeFailure(c echo.Context, err error) error {
    body := echo.Map{"error": err.Error()}
    var se *repository.StoreError
    if errors.As(err, &se) {
        body["op"] = se.Op
        body["error"] = se.Err.Error()
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        body["error"] = me.Message
        body["code"] = me.Number
        body["sqlState"] = string(me.SQLState[:])
    }
    return c.JSON(http.StatusInternalServerError, body)
}
