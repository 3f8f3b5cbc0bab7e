package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/arbory/colloquy/pkg/definition"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/registry"
)

// resolveConfig builds the behavior configuration. Inline config always wins
// over the legacy init_config provider, which is invoked only when no inline
// payload exists.
func resolveConfig(def *definition.WorkflowDefinition, reg *registry.Context) (*graph.Behavior, error) {
	payload := def.Config
	if len(payload) == 0 && def.RuntimeConfig.InitConfig != "" {
		provider, err := reg.ResolveConfigProvider(def.RuntimeConfig.InitConfig)
		if err != nil {
			return nil, withWhere(err, "runtime_config.init_config")
		}
		payload, err = provider()
		if err != nil {
			return nil, fmt.Errorf("init_config provider %q: %w", def.RuntimeConfig.InitConfig, err)
		}
	}

	behavior := &graph.Behavior{}
	if len(payload) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           behavior,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return nil, fmt.Errorf("build config decoder: %w", err)
		}
		if err := decoder.Decode(payload); err != nil {
			return nil, fmt.Errorf("decode behavior config: %w", err)
		}
	}

	behavior.ModelAliases = def.RuntimeConfig.ModelAliases
	if behavior.MessagePolicy == "" {
		behavior.MessagePolicy = def.RuntimeConfig.MessagePolicy
	}

	if ref := def.RuntimeConfig.ExampleGenerator; ref != "" {
		fn, err := reg.ResolveConfigFn(ref)
		if err != nil {
			return nil, withWhere(err, "runtime_config.example_generator")
		}
		gen, ok := fn.(graph.ExampleGenerator)
		if !ok {
			return nil, &registry.UnresolvedReferenceError{
				Kind: registry.KindConfigFn, Key: ref,
				Where: fmt.Sprintf("runtime_config.example_generator: registered value has type %T, want graph.ExampleGenerator", fn),
			}
		}
		behavior.ExampleGenerator = gen
	}

	if ref := def.RuntimeConfig.OverlayPrefix; ref != "" {
		fn, err := reg.ResolveConfigFn(ref)
		if err != nil {
			return nil, withWhere(err, "runtime_config.overlay_prefix")
		}
		mapper, ok := fn.(graph.PrefixMapper)
		if !ok {
			return nil, &registry.UnresolvedReferenceError{
				Kind: registry.KindConfigFn, Key: ref,
				Where: fmt.Sprintf("runtime_config.overlay_prefix: registered value has type %T, want graph.PrefixMapper", fn),
			}
		}
		behavior.OverlayPrefix = mapper
	}

	return behavior, nil
}
