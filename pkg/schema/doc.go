// Package schema is the port type system of the Lattice engine.
//
// It defines the closed PortType enumeration with its compatibility table,
// the recursive Descriptor language (Simple, Parameterized, TypeVar) used on
// port definitions, unification of descriptors against per-node bindings,
// and the implicit conversions applied when values cross between port types.
//
// Descriptors can be built programmatically or parsed from their string form:
//
//	elem := schema.Var("T")
//	in := schema.ListOf(elem)                       // LIST<T>
//	out, _ := schema.ParseDescriptor("MAP<STRING, NUMBER>")
//
// Unification threads an explicit Bindings map, scoped to one node instance:
//
//	b := schema.Bindings{}
//	schema.Unify(schema.ListOf(schema.Of(schema.Number)), in, b)
//	in.Resolve(b) // LIST<NUMBER>
//
// Conversions follow fixed numeric semantics: booleans become 0/1, unparseable
// strings become NaN, vectors collapse to the mean of their components.
//
//	schema.Convert(domain.Str("2.5"), schema.String, schema.Number) // 2.5
package schema
