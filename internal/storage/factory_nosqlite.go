//go:build !sqlite

package storage

import "errors"

var errSQLiteUnavailable = errors.New("sqlite store not compiled in; build with -tags sqlite")

func openSQLiteStore(string) (Store, error) {
	return nil, errSQLiteUnavailable
}
