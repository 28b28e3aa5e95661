// Package schema models collection definitions of a PocketBase-style backend.
//
// Definitions arrive as loosely typed JSON. They are decoded at the boundary into typed
// structures so the differ and merger work on exhaustively matched variants:
//
//   - Collection: name, type (base, auth, view), ordered fields, five access rules and
//     index statements. Keys that are not modelled are carried verbatim in Extra.
//   - Field: common attributes plus a kind-specific Options variant (TextOptions,
//     SelectOptions, RelationOptions, FileOptions, ...).
//   - Value: a three-state attribute (unspecified, null, value) so a partial target only
//     speaks for the keys it actually declares.
//
// # Identity
//
// A field's name is its identity. Its ID is assigned by the remote store, is never
// compared and is carried forward unchanged by OverlayAttributes.
//
// # Usage
//
//	def, err := schema.LoadDefinition("assets/schema_definitions.json")
//	if err != nil {
//	    return err
//	}
//	for _, c := range def {
//	    fmt.Println(c.Name, c.FieldNames())
//	}
package schema
