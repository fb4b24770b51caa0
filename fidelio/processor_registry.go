// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fidelio

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for Processor implementations.
//
// The registry is intended to be used by all client applications that would
// like to execute transactions against a processor implementation. For an
// implementation to be available it needs to be registered. Typically, this
// registration is part of the init code of the package providing the
// implementation. Thus, by including the implementation package, processor
// implementations become available in this central registry.

// ProcessorFactory creates a fresh instance of a registered implementation.
type ProcessorFactory func() Processor

// NewProcessor performs a lookup for the given name (case-insensitive) in the
// registry and creates a new Processor instance. An error is returned if no
// factory was registered under the given name.
func NewProcessor(name string) (Processor, error) {
	factory := GetProcessorFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("processor not found: %s", name)
	}
	return factory(), nil
}

// GetProcessorFactory performs a lookup for the given name (case-insensitive)
// in the registry. The result is nil if no factory was registered under the
// given name.
func GetProcessorFactory(name string) ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return processorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredProcessors obtains all registered implementations.
func GetAllRegisteredProcessors() map[string]ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return maps.Clone(processorRegistry)
}

// RegisterProcessorFactory can be used to register a new Processor
// implementation to be exported for general use in the binary. The name is
// not case-sensitive, and a panic is triggered if a factory was bound to the
// same name before, or the factory is nil. This function is mainly intended
// to be used by package initialization code.
func RegisterProcessorFactory(name string, factory ProcessorFactory) {
	if factory == nil {
		panic(fmt.Sprintf("invalid initialization: cannot register nil-factory using name %s", name))
	}
	key := strings.ToLower(name)
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	if _, found := processorRegistry[key]; found {
		panic(fmt.Sprintf("invalid initialization: multiple factories registered for %s", name))
	}
	processorRegistry[key] = factory
}

var processorRegistry = map[string]ProcessorFactory{}
var processorRegistryLock sync.Mutex
