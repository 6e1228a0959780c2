// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Plugin interface {
	Start() error
	Stop() error
}

// Config carries the settings a plugin receives from its caller rather
// than from command line options
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir is the storage directory. An empty value selects in-memory storage.
	DataDir string
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin creates a plugin from the registry and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	cfg Config,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName, cfg)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

// SetPluginOption sets the value of a named option for a registered plugin.
// Unknown option names are ignored. It must be called before the plugin is
// created.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	entry := getPluginEntry(pluginType, pluginName)
	if entry == nil {
		return fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	for _, opt := range entry.Options {
		if opt.Name != optionName {
			continue
		}
		switch opt.Type {
		case PluginOptionTypeString:
			return assignOption[string](opt, value)
		case PluginOptionTypeBool:
			return assignOption[bool](opt, value)
		case PluginOptionTypeInt:
			return assignOption[int](opt, value)
		case PluginOptionTypeUint:
			// Untyped constants arrive as int
			if v, ok := value.(int); ok {
				if v < 0 {
					return fmt.Errorf(
						"invalid value for option %s: negative int",
						optionName,
					)
				}
				value = uint64(v)
			}
			return assignOption[uint64](opt, value)
		default:
			return fmt.Errorf(
				"unknown type for option %s: %d",
				optionName,
				opt.Type,
			)
		}
	}
	return nil
}

func assignOption[T any](opt PluginOption, value any) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf(
			"invalid type for option %s: expected %T, got %T",
			opt.Name,
			v,
			value,
		)
	}
	dest, ok := opt.Dest.(*T)
	if !ok || dest == nil {
		return fmt.Errorf(
			"invalid destination for option %s: expected *%T",
			opt.Name,
			v,
		)
	}
	*dest = v
	return nil
}
