package store

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
	"github.com/CTRLRLTY/JARY-sub000/internal/vm"
)

// QMatch builds and runs the deferred SQL query a rule's match
// operands describe, then invokes rowFn once per result row, per
// §4.5's q_match contract and §6's SQL surface:
//
//	SELECT t.c AS "t.c", ... FROM t1, t2, ... WHERE <join-equalities>, <exact-equalities>;
//
// unlike the original, every predicate is joined with AND (not ",")
// and every operand value is a bound parameter, never formatted
// directly into the query text.
func (s *Store) QMatch(operands []vm.Operand, rowFn func(vm.Row) (bool, error)) error {
	tables := map[string]bool{}
	var selectCols []string
	var colNames []string
	var whereParts []string
	var args []interface{}

	addTable := func(scopeID uint32) (*columnRef, error) {
		scope, ok := s.scopes[scopeID]
		if !ok {
			return nil, errors.Errorf("store: unknown event scope %d", scopeID)
		}
		if !tables[scope.IngressName] {
			tables[scope.IngressName] = true
			for _, col := range scope.FieldOrder {
				selectCols = append(selectCols, fmt.Sprintf("%s.%s AS %q", quoteIdent(scope.IngressName), quoteIdent(col), scope.IngressName+"."+col))
				colNames = append(colNames, scope.IngressName+"."+col)
			}
		}
		return &columnRef{table: scope.IngressName, scope: scope}, nil
	}

	colOf := func(d value.Descriptor) (string, error) {
		ref, err := addTable(d.ScopeID)
		if err != nil {
			return "", err
		}
		if int(d.MemberID) >= len(ref.scope.FieldOrder) {
			return "", errors.Errorf("store: member id %d out of range for %q", d.MemberID, ref.table)
		}
		return fmt.Sprintf("%s.%s", quoteIdent(ref.table), quoteIdent(ref.scope.FieldOrder[d.MemberID])), nil
	}

	for _, op := range operands {
		switch op.Kind {
		case vm.OpJoin:
			lcol, err := colOf(op.Desc)
			if err != nil {
				return err
			}
			rcol, err := colOf(op.Desc2)
			if err != nil {
				return err
			}
			whereParts = append(whereParts, fmt.Sprintf("%s = %s", lcol, rcol))

		case vm.OpExact:
			col, err := colOf(op.Desc)
			if err != nil {
				return err
			}
			whereParts = append(whereParts, fmt.Sprintf("%s = ?", col))
			args = append(args, sqlParam(op.Val))

		case vm.OpRegexp:
			col, err := colOf(op.Desc)
			if err != nil {
				return err
			}
			whereParts = append(whereParts, fmt.Sprintf("%s REGEXP ?", col))
			args = append(args, sqlParam(op.Val))

		case vm.OpBetween:
			col, err := colOf(op.Desc)
			if err != nil {
				return err
			}
			whereParts = append(whereParts, fmt.Sprintf("%s BETWEEN ? AND ?", col))
			args = append(args, sqlParam(op.Lo), sqlParam(op.Hi))

		case vm.OpWithin:
			col, err := colOf(op.Desc)
			if err != nil {
				return err
			}
			secs := op.Val.TimeOfs().Seconds()
			whereParts = append(whereParts, fmt.Sprintf("%s >= (unixepoch() - ?)", col))
			args = append(args, secs)
		}
	}

	if len(tables) == 0 {
		return nil
	}

	var tableList []string
	for t := range tables {
		tableList = append(tableList, quoteIdent(t))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectCols, ", "), strings.Join(tableList, ", "))
	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return errors.Wrap(err, "store: q_match query")
	}
	defer rows.Close()

	scratch := make([]interface{}, len(colNames))
	ptrs := make([]interface{}, len(colNames))
	for i := range scratch {
		ptrs[i] = &scratch[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrap(err, "store: scan row")
		}
		vals := make([]value.Value, len(colNames))
		for i, raw := range scratch {
			vals[i] = fromSQL(colNames[i], raw)
		}
		stop, err := rowFn(vm.Row{Columns: colNames, Values: vals})
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return rows.Err()
}

type columnRef struct {
	table string
	scope *compiler.EventScope
}

func quoteIdent(s string) string { return fmt.Sprintf("%q", s) }

func fromSQL(col string, raw interface{}) value.Value {
	switch v := raw.(type) {
	case int64:
		return value.NewLong(v)
	case float64:
		return value.NewLong(int64(v))
	case string:
		return value.NewStr(v)
	case []byte:
		return value.NewStr(string(v))
	case nil:
		return value.NewStr("")
	default:
		return value.NewStr(fmt.Sprintf("%v", v))
	}
}
