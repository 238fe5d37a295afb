package mysql

// -----------------------------------------------------------------------------
// ROOMS & CATEGORIES
// -----------------------------------------------------------------------------

const insertCategorySQL = `INSERT INTO room_categories (name, description) VALUES (?, ?)`

const selectCategorySQL = `SELECT id, name, description FROM room_categories`

const insertRoomSQL = `
INSERT INTO rooms
  (number, base_price, available, seasonal_rate, multiplier, last_price_update, category_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// Pricing columns are written individually; see Repo.UpdateRoomPrice.
const updateRoomPriceSQL = `UPDATE rooms SET %s, last_price_update = ? WHERE id = ?`

const updateRoomAvailabilitySQL = `UPDATE rooms SET available = ? WHERE id = ?`

const selectRoomSQL = `
SELECT id, number, base_price, available, seasonal_rate, multiplier, last_price_update, category_id
FROM rooms`

// Row lock on the room serialises concurrent bookings of it across connections.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

// -----------------------------------------------------------------------------
// GUESTS
// -----------------------------------------------------------------------------

const insertGuestSQL = `
INSERT INTO guests (name, email, phone, address, registered_at)
VALUES (?, ?, ?, ?, ?)
`

const selectGuestSQL = `SELECT id, name, email, phone, address, registered_at FROM guests`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (check_in, check_out, total_amount, created_at, status, guest_id, room_id, guests, special_request)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBookingSQL = `
UPDATE bookings SET
  check_in        = ?,
  check_out       = ?,
  total_amount    = ?,
  status          = ?,
  guest_id        = ?,
  room_id         = ?,
  guests          = ?,
  special_request = ?
WHERE id = ?
`

const lockBookingSQL = `SELECT id FROM bookings WHERE id = ? FOR UPDATE`

// Locks every payment of the booking so no status change can slip between
// the restrict check and the delete.
const lockBookingPaymentsSQL = `SELECT status, amount FROM payments WHERE booking_id = ? FOR UPDATE`

const selectBookingSQL = `
SELECT id, check_in, check_out, total_amount, created_at, status, guest_id, room_id, guests, special_request
FROM bookings`

// Half-open overlap: existing.check_in < new.check_out AND new.check_in < existing.check_out.
const overlapWhere = ` WHERE room_id = ? AND id <> ? AND status <> 'CANCELLED' AND check_in < ? AND ? < check_out`

// -----------------------------------------------------------------------------
// PAYMENTS
// -----------------------------------------------------------------------------

const insertPaymentSQL = `
INSERT INTO payments
  (amount, method, status, transaction_id, paid_at, booking_id, reference, notes)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePaymentSQL = `
UPDATE payments SET
  amount         = ?,
  method         = ?,
  status         = ?,
  transaction_id = ?,
  paid_at        = ?,
  booking_id     = ?,
  reference      = ?,
  notes          = ?
WHERE id = ? AND status = ?
`

const updatePaymentStatusSQL = `
UPDATE payments SET
  status  = ?,
  paid_at = COALESCE(?, paid_at)
WHERE id = ? AND status = ?
`

const selectPaymentSQL = `
SELECT id, amount, method, status, transaction_id, paid_at, booking_id, reference, notes
FROM payments`

const sumCompletedSQL = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'COMPLETED'`
