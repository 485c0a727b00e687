package ride

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/types"
)

var ErrMalformed = errors.New("malformed ride document")

// FromDocument validates a raw ride document. Optional fields of the wrong
// type are normalized away; required fields of the wrong type reject the
// whole document.
func FromDocument(doc docstore.Document) (Ride, error) {
	d := doc.Data
	r := Ride{ID: types.ID(doc.ID)}

	status, ok := d[FieldStatus].(string)
	if !ok || !Status(status).Persisted() {
		return Ride{}, fmt.Errorf("%w %s: status %v", ErrMalformed, doc.ID, d[FieldStatus])
	}
	r.Status = Status(status)

	if r.Pickup, ok = d[FieldPickup].(string); !ok {
		return Ride{}, fmt.Errorf("%w %s: pickup", ErrMalformed, doc.ID)
	}
	if r.Destination, ok = d[FieldDestination].(string); !ok {
		return Ride{}, fmt.Errorf("%w %s: destination", ErrMalformed, doc.ID)
	}

	var err error
	if r.PassengerID, err = optionalID(d[FieldPassengerID]); err != nil {
		return Ride{}, fmt.Errorf("%w %s: passengerId: %v", ErrMalformed, doc.ID, err)
	}
	if r.DriverID, err = optionalID(d[FieldDriverID]); err != nil {
		return Ride{}, fmt.Errorf("%w %s: driverId: %v", ErrMalformed, doc.ID, err)
	}
	r.PassengerName, _ = d[FieldPassengerName].(string)
	r.DriverName, _ = d[FieldDriverName].(string)

	if list, ok := d[FieldDeclinedDriverIDs].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				r.DeclinedDriverIDs = append(r.DeclinedDriverIDs, types.ID(s))
			}
		}
	}
	r.ClosedByDriver, _ = d[FieldClosedByDriver].(bool)
	r.ClosedByPassenger, _ = d[FieldClosedByPassenger].(bool)

	if t, ok := d[FieldCreatedAt].(time.Time); ok {
		r.CreatedAt = t
	} else {
		r.CreatedAt = doc.CreateTime
	}
	r.StartTime = optionalTime(d[FieldStartTime])
	r.EndTime = optionalTime(d[FieldEndTime])
	return r, nil
}

// ParseAll keeps every well-formed ride and logs the rest.
func ParseAll(docs []docstore.Document, log *slog.Logger) []Ride {
	out := make([]Ride, 0, len(docs))
	for _, doc := range docs {
		r, err := FromDocument(doc)
		if err != nil {
			if log != nil {
				log.Warn("skipping ride document", "ride_id", doc.ID, "error", err)
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func optionalID(v any) (*types.ID, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		id := types.ID(val)
		return &id, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func optionalTime(v any) *time.Time {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return nil
	}
	return &t
}
