package model

import "time"

// Hall represents a screening hall and its immutable seating geometry.
// The grid defines the valid coordinate space for bookings: a seat
// coordinate (row, seat) is valid when 1 <= row <= TotalRows and
// 1 <= seat <= SeatsPerRow.  Resizing a hall that already has bookings
// is not supported.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human readable label for the hall.
//  TotalRows   – number of seating rows (>= 1).
//  SeatsPerRow – number of seats in every row (>= 1).
//  CreatedAt   – creation timestamp.
type Hall struct {
	ID          uint64    `json:"id"`            // halls.id
	Name        string    `json:"name"`          // halls.name
	TotalRows   uint32    `json:"total_rows"`    // halls.total_rows
	SeatsPerRow uint32    `json:"seats_per_row"` // halls.seats_per_row
	CreatedAt   time.Time `json:"created_at"`    // halls.created_at
}

// Contains reports whether the 1-based seat coordinate lies inside the
// hall's grid.
func (h *Hall) Contains(row, seat uint32) bool {
	return row >= 1 && row <= h.TotalRows && seat >= 1 && seat <= h.SeatsPerRow
}
