package lookup

import "database/sql"

// KeyString scans (BIGINT key, TEXT value) rows. A NULL value scans as the
// empty string; queries filter NULLs themselves.
func KeyString(rows *sql.Rows) (int64, string, error) {
	var k int64
	var v sql.NullString
	if err := rows.Scan(&k, &v); err != nil {
		return 0, "", err
	}
	return k, v.String, nil
}

// KeyKey scans (BIGINT key, BIGINT value) rows.
func KeyKey(rows *sql.Rows) (int64, int64, error) {
	var k, v int64
	if err := rows.Scan(&k, &v); err != nil {
		return 0, 0, err
	}
	return k, v, nil
}
