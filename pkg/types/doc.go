// Package types defines the Store and Table interfaces, the NPC and Item
// entity types, and the standard errors for the shopkeeper record store.
//
// Entities carry an explicit schema. Partial updates are expressed with the
// NPCPatch and ItemPatch structs, where a nil field means "leave unchanged".
package types
