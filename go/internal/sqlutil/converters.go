package sqlutil

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Helper functions for converting between Go types and pgtype values

// ToPgTimestamptz converts a Go time pointer to pgtype.Timestamptz
func ToPgTimestamptz(val *time.Time) pgtype.Timestamptz {
	if val == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *val, Valid: true}
}

// FromPgTimestamptz converts pgtype.Timestamptz to Go time pointer
func FromPgTimestamptz(val pgtype.Timestamptz) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time
	return &t
}

// ToPgMillis converts a Go duration pointer to a nullable millisecond count
func ToPgMillis(val *time.Duration) pgtype.Int8 {
	if val == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: val.Milliseconds(), Valid: true}
}

// FromPgMillis converts a nullable millisecond count to a Go duration pointer
func FromPgMillis(val pgtype.Int8) *time.Duration {
	if !val.Valid {
		return nil
	}
	d := time.Duration(val.Int64) * time.Millisecond
	return &d
}
