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
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// PluginOption describes a tunable exposed as a command line flag. Dest
// must be a pointer matching Type.
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func(Config) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry. Registering the same type and name
// twice replaces the earlier entry.
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	for i, entry := range pluginEntries {
		if entry.Type == pluginEntry.Type && entry.Name == pluginEntry.Name {
			pluginEntries[i] = pluginEntry
			return
		}
	}
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of the given type sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	var ret []PluginEntry
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return ret
}

// GetPlugin creates an instance of the named plugin, or returns nil if no
// such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string, cfg Config) Plugin {
	entry := getPluginEntry(pluginType, pluginName)
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc(cfg)
}

func getPluginEntry(pluginType PluginType, pluginName string) *PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == pluginName {
			entry := pluginEntries[i]
			return &entry
		}
	}
	return nil
}

// PopulateCmdlineOptions adds a flag named <type>-<plugin>-<option> for
// every registered plugin option
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			flagName := fmt.Sprintf(
				"%s-%s-%s",
				PluginTypeName(entry.Type),
				entry.Name,
				opt.Name,
			)
			if err := addFlag(fs, flagName, opt); err != nil {
				return err
			}
		}
	}
	return nil
}

func addFlag(fs *pflag.FlagSet, flagName string, opt PluginOption) error {
	switch opt.Type {
	case PluginOptionTypeString:
		dest, ok := opt.Dest.(*string)
		def, ok2 := opt.DefaultValue.(string)
		if !ok || !ok2 {
			return fmt.Errorf("invalid string option %s", flagName)
		}
		fs.StringVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeBool:
		dest, ok := opt.Dest.(*bool)
		def, ok2 := opt.DefaultValue.(bool)
		if !ok || !ok2 {
			return fmt.Errorf("invalid bool option %s", flagName)
		}
		fs.BoolVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeInt:
		dest, ok := opt.Dest.(*int)
		def, ok2 := opt.DefaultValue.(int)
		if !ok || !ok2 {
			return fmt.Errorf("invalid int option %s", flagName)
		}
		fs.IntVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeUint:
		dest, ok := opt.Dest.(*uint64)
		def, ok2 := opt.DefaultValue.(uint64)
		if !ok || !ok2 {
			return fmt.Errorf("invalid uint option %s", flagName)
		}
		fs.Uint64Var(dest, flagName, def, opt.Description)
	default:
		return fmt.Errorf("unknown type for option %s: %d", flagName, opt.Type)
	}
	return nil
}
