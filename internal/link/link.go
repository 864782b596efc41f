// Package link defines the frame I/O boundary and a registry of drivers.
package link

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/losenet/internal/core"
)

// Link moves whole Ethernet frames. Receive blocks until a frame arrives, ctx
// is done, or the link is exhausted (io.EOF). Send blocks until the frame is
// handed to the interface and must not retain frame afterwards; a failed
// send is not retried.
type Link interface {
	Receive(ctx context.Context) (core.RawFrame, error)
	Send(frame []byte) error
	Close() error
}

// Factory opens a link from its raw option map.
type Factory func(options map[string]interface{}) (Link, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register makes a driver available to Open. Drivers call it from init.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Open creates the link registered under name.
func Open(name string, options map[string]interface{}) (Link, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("link %q: %w", name, core.ErrLinkNotFound)
	}
	l, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("open link %q: %w", name, err)
	}
	return l, nil
}

// Names lists registered drivers in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeOptions decodes a driver option map into out, a pointer to a struct
// with mapstructure tags. Strings are converted to numbers and bools so values
// from environment variables decode the same as YAML ones.
func DecodeOptions(options map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("link options: %w: %v", core.ErrConfigInvalid, err)
	}
	return nil
}
