package vm

import "github.com/CTRLRLTY/JARY-sub000/internal/value"

// Row is one matched record handed back by Store.QMatch: parallel
// "table.column" names and the values read for them, per §6's SQL
// surface (`SELECT t.c AS "t.c" ...`).
type Row struct {
	Columns []string
	Values  []value.Value
}

// Store is the storage-layer seam QUERY drives. internal/store
// implements it over database/sql + mattn/go-sqlite3; tests can supply
// a fake.
type Store interface {
	QMatch(operands []Operand, rowFn func(Row) (stop bool, err error)) error
}
