package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
)

// trapNoRowsErr maps psql "no rows" to the domain's not-found sentinel.
func trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

// mapTxErr maps postgres contention failures (serialization failure,
// deadlock) to core.ErrTxConflict so callers know to retry the whole
// logical operation.
func mapTxErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01":
			return core.ErrTxConflict
		}
	}
	return errors.Wrap(err, msg)
}

// rollback aborts tx, keeping the original error.
func rollback(tx *sqlx.Tx, err error) error {
	_ = tx.Rollback()
	return err
}

func marshalJSONB(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling jsonb column")
	}
	return data, nil
}

func unmarshalJSONB(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, v), "unmarshaling jsonb column")
}
