//go:build sqlite

package storage

func openSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
