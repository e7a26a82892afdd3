package store

// Schema DDL for the SQLite medium. Records are stored as JSON bodies keyed by
// table name and position; sequences hold each table's id high-water mark.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    table_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (table_name, position)
);`

	createSequences = `CREATE TABLE IF NOT EXISTS sequences (
    table_name TEXT PRIMARY KEY,
    seq INTEGER NOT NULL
);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createRecords,
	createSequences,
}
