//go:build unit

package bootstrap_test

import (
	"context"
	"fmt"

	"github.com/LerianStudio/lib-numrt/numrt/bootstrap"
	"github.com/LerianStudio/lib-numrt/numrt/multicore"
	"github.com/LerianStudio/lib-numrt/numrt/parallel"
)

func ExampleEnvironment_Init() {
	node := parallel.NewNode(nil)
	core := multicore.New(nil)
	_ = core.Configure(2)

	env := bootstrap.New(
		bootstrap.WithFeatures(bootstrap.Features{Distributed: true, SharedMemory: true}),
		bootstrap.WithDistributed(node, parallel.NewNodePool(node, nil)),
		bootstrap.WithSharedMemory(core),
	)
	defer env.Shutdown()

	args := []string{"solver", "--numrt-size=1", "mesh.vtk"}
	out := env.Init(context.Background(), &args)

	fmt.Println(out, args)

	// Output:
	// success [solver mesh.vtk]
}
