package types

// Standard table names for Store.GetTable.
const (
	NPCsTable  = "npcs"
	ItemsTable = "items"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	NPCsTable,
	ItemsTable,
}
