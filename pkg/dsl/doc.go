/*
Package dsl provides a fluent Go builder for Lattice graphs.

It is an alternative to JSON or YAML documents, useful for tests, embedding and
programmatic graph generation.

Example usage:

	b := dsl.New("greeter", "Greeter")

	b.Add("start", "trigger.manual").Then("log")
	b.Add("name", "constant.string").Set("value", "world")
	b.Add("greeting", "string.concat").
		Set("a", "hello, ").
		From("b", "name", "value")
	b.Add("log", "action.log").From("message", "greeting", "result")

	graph, err := b.Build()
*/
package dsl
