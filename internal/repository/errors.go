// Package repository holds the data access layer.  Every task query takes
// the requesting user's id and filters on it, so a task owned by someone
// else behaves exactly like a task that does not exist.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrDuplicateCredential is returned when a username or email is
	// already registered.
	ErrDuplicateCredential = errors.New("username or email already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when a task is absent or owned by
	// another user.  The two cases are deliberately not distinguished.
	ErrTaskNotFound = errors.New("task not found")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
