package app

import (
	"github.com/vk/stagerun/internal/registry"
	"github.com/vk/stagerun/modules/httpops"
	"github.com/vk/stagerun/modules/mathops"
	"github.com/vk/stagerun/modules/textops"
	"github.com/vk/stagerun/modules/timeops"
)

// coreModules are the built-in callable modules registered by default.
var coreModules = []registry.Module{
	mathops.Module{},
	textops.Module{},
	timeops.Module{},
	httpops.Module{},
}

// CoreRegistry builds a registry populated with the built-in modules. The
// worker-mode entrypoint uses it so both sides of the process boundary
// resolve the same callable names.
func CoreRegistry() *registry.Registry {
	reg := registry.New()
	for _, mod := range coreModules {
		mod.Register(reg)
	}
	return reg
}
