package nodelink_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/render/nodelink"
)

func ExampleToDOT() {
	g := graph.New(nil)
	load := &graph.Node{Type: "LoadImage"}
	save := &graph.Node{Type: "SaveImage"}
	_ = g.Add(load)
	_ = g.Add(save)
	load.AddOutput("IMAGE", "IMAGE")
	save.AddInput("images", "IMAGE")
	_, _ = g.Connect(load, 0, save, 0)

	dot := nodelink.ToDOT(g, nodelink.Options{})
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, "->") || strings.Contains(line, "label=") {
			fmt.Println(strings.TrimSpace(line))
		}
	}
	// Output:
	// "1" [label="LoadImage"];
	// "2" [label="SaveImage"];
	// "1" -> "2";
}
