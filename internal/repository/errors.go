// Package repository holds the MySQL data access code.  Queries are plain
// database/sql with `?` placeholders; optional columns are normalised while
// scanning so the rest of the application never handles NULLs.  The sentinel
// values below let handlers tell failure scenarios apart.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrDayNotFound is returned when a schedule day id does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrDayNotFound = errors.New("schedule day not found")

// ErrSessionNotFound is returned when a session id does not exist, or does
// not belong to the day it was addressed through.
var ErrSessionNotFound = errors.New("schedule session not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a day with the same date already existing in
// the programme.  Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when creating an admin with a taken email.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}
