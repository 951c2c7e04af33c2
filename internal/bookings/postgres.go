package bookings

import (
	"context"

	"github.com/example/spoon-voicebot/internal/db"
)

// PostgresStore persists bookings in the bookings table. IDs are assigned
// under an exclusive table lock so the sequence has no gaps or duplicates
// across processes.
type PostgresStore struct{ db *db.DB }

func NewPostgresStore(d *db.DB) *PostgresStore { return &PostgresStore{db: d} }

func (r *PostgresStore) Create(ctx context.Context, nb NewBooking) (Booking, error) {
	b := Booking{
		Name:            nb.Name,
		Phone:           nb.Phone,
		Date:            nb.Date,
		Time:            nb.Time,
		Guests:          nb.Guests,
		SpecialRequests: specialRequests(nb.SpecialRequests),
		CallSID:         nb.CallSID,
	}

	err := r.db.InTx(ctx, func(tx db.Tx) error {
		if err := tx.Exec(ctx, `LOCK TABLE bookings IN EXCLUSIVE MODE`); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
			return err
		}
		b.ID = FormatID(n + 1)
		return tx.QueryRow(ctx, `
INSERT INTO bookings(seq,booking_id,name,phone,date,time,guests,special_requests,call_sid)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))
RETURNING created_at`,
			n+1, b.ID, b.Name, b.Phone, b.Date, b.Time, b.Guests, b.SpecialRequests, b.CallSID,
		).Scan(&b.CreatedAt)
	})
	if err != nil {
		return Booking{}, db.WrapNotFound(err)
	}
	return b, nil
}

func (r *PostgresStore) List(ctx context.Context) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
SELECT booking_id,name,phone,date,time,guests,special_requests,COALESCE(call_sid,''),created_at
FROM bookings
ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Phone, &b.Date, &b.Time, &b.Guests, &b.SpecialRequests, &b.CallSID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresStore) Get(ctx context.Context, id string) (Booking, error) {
	var b Booking
	err := r.db.QueryRow(ctx, `
SELECT booking_id,name,phone,date,time,guests,special_requests,COALESCE(call_sid,''),created_at
FROM bookings
WHERE booking_id=$1`, id).
		Scan(&b.ID, &b.Name, &b.Phone, &b.Date, &b.Time, &b.Guests, &b.SpecialRequests, &b.CallSID, &b.CreatedAt)
	if err != nil {
		return Booking{}, db.WrapNotFound(err)
	}
	return b, nil
}

func (r *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n)
	return n, err
}
