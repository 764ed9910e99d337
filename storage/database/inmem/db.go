package inmemdb

import "sync"

type (
	DB struct {
		progress *progressTable
	}

	progressTable struct {
		mutex sync.RWMutex
		table map[string][]byte // {learnerID: blob}
	}
)

func Open() *DB {
	return &DB{
		progress: &progressTable{table: make(map[string][]byte)},
	}
}
