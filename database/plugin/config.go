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
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to plugin option environment variables
const EnvPrefix = "TALLY_DATABASE"

// ProcessConfig applies plugin options read from a config file. The map is
// keyed by plugin type name, then plugin name, then option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for typeName, plugins := range pluginConfig {
		pluginType, ok := pluginTypeByName(typeName)
		if !ok {
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for pluginName, options := range plugins {
			for optionName, value := range options {
				err := SetPluginOption(pluginType, pluginName, optionName, value)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables named
// TALLY_DATABASE_<TYPE>_<PLUGIN>_<OPTION>, with dashes replaced by
// underscores
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	entries := append([]PluginEntry(nil), pluginEntries...)
	pluginEntriesMutex.RUnlock()
	for _, entry := range entries {
		for _, opt := range entry.Options {
			envName := envVarName(entry.Type, entry.Name, opt.Name)
			raw, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			value, err := parseOptionValue(opt.Type, raw)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", envName, err)
			}
			if err := SetPluginOption(entry.Type, entry.Name, opt.Name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func envVarName(pluginType PluginType, pluginName, optionName string) string {
	name := strings.Join(
		[]string{EnvPrefix, PluginTypeName(pluginType), pluginName, optionName},
		"_",
	)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func pluginTypeByName(name string) (PluginType, bool) {
	for _, pluginType := range []PluginType{PluginTypeBlob, PluginTypeMetadata} {
		if PluginTypeName(pluginType) == name {
			return pluginType, true
		}
	}
	return 0, false
}

func parseOptionValue(optType PluginOptionType, raw string) (any, error) {
	switch optType {
	case PluginOptionTypeString:
		return raw, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(raw)
	case PluginOptionTypeInt:
		return strconv.Atoi(raw)
	case PluginOptionTypeUint:
		return strconv.ParseUint(raw, 10, 64)
	default:
		return nil, fmt.Errorf("unknown option type %d", optType)
	}
}
