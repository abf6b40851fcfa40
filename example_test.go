package lattice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
)

const greeter = `
schema_version: 1
id: greeter
nodes:
  - id: start
    type: trigger.manual
  - id: hello
    type: constant.string
    defaults: {value: "Hello, "}
  - id: greeting
    type: string.concat
  - id: say
    type: action.log
edges:
  - {source: start, source_handle: out, target: say, target_handle: in, kind: execution}
  - {source: hello, source_handle: value, target: greeting, target_handle: a}
  - {source: start, source_handle: payload, target: greeting, target_handle: b}
  - {source: greeting, source_handle: result, target: say, target_handle: message}
`

// ExampleEngine_Fire loads a script from an in-memory loader and fires its trigger.
func ExampleEngine_Fire() {
	loader := memory.NewLoader(map[string]string{"greeter": greeter})

	eng, err := lattice.New(
		lattice.WithLoader(loader),
		lattice.WithListener(domain.LifecycleHooks{
			Log: func(level, message string) { fmt.Println(level, message) },
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	ctx := context.Background()
	if _, err := eng.Load(ctx, "greeter"); err != nil {
		log.Fatal(err)
	}
	if err := eng.Fire(ctx, "greeter", "start", map[string]any{"payload": "world"}); err != nil {
		log.Fatal(err)
	}
	// Output: info Hello, world
}
