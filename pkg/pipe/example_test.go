package pipe_test

import (
	"fmt"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/host"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
)

func Example() {
	reg := graph.NewRegistry()
	ext := pipe.New(pipe.Options{Host: host.NewDeferred()})
	if err := ext.Install(reg); err != nil {
		panic(err)
	}
	g := graph.New(reg)
	ext.Bind(g)

	in, _ := g.Create(pipe.TypePipeIn)
	reroute, _ := g.Create("Reroute")
	out, _ := g.Create(pipe.TypePipeOut)

	producer := in.Handler.(*pipe.PipeIn)
	producer.AddSlot()
	producer.RenameSlot(1, "image")
	producer.RenameSlot(2, "mask")

	g.Connect(in, 0, reroute, 0)
	g.Connect(reroute, 0, out, 0)
	for _, o := range out.Outputs {
		fmt.Println(o.DisplayName())
	}

	producer.RenameSlot(2, "alpha")
	fmt.Println(out.Outputs[1].DisplayName())
	// Output:
	// image
	// mask
	// alpha
}

func ExampleResolver_FindOriginalSource() {
	reg := graph.NewRegistry()
	ext := pipe.New(pipe.Options{})
	_ = ext.Install(reg)
	g := graph.New(reg)
	ext.Bind(g)

	in, _ := g.Create(pipe.TypePipeIn)
	a, _ := g.Create("Reroute")
	b, _ := g.Create("Reroute")
	g.Connect(in, 0, a, 0)
	g.Connect(a, 0, b, 0)

	fmt.Println(ext.Resolver().FindOriginalSource(b, 0))
	// Output: FriendlyPipeIn#1
}
