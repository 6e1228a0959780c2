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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/tally/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct {
	cfg      plugin.Config
	started  bool
	startErr error
}

func (m *mockPlugin) Start() error {
	m.started = true
	return m.startErr
}

func (m *mockPlugin) Stop() error { return nil }

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		Description:        "first",
		NewFromOptionsFunc: func(plugin.Config) plugin.Plugin { return &mockPlugin{} },
	})
	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName, plugin.Config{})
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)

	// Registering again replaces the entry
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		Description:        "second",
		NewFromOptionsFunc: func(plugin.Config) plugin.Plugin { return &mockPlugin{} },
	})
	var matches []plugin.PluginEntry
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if entry.Name == pluginName {
			matches = append(matches, entry)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "second", matches[0].Description)
}

func TestGetPlugins(t *testing.T) {
	blobName1 := "blob-b-" + t.Name()
	blobName2 := "blob-a-" + t.Name()
	metaName := "meta-" + t.Name()
	for _, entry := range []plugin.PluginEntry{
		{Type: plugin.PluginTypeBlob, Name: blobName1},
		{Type: plugin.PluginTypeBlob, Name: blobName2},
		{Type: plugin.PluginTypeMetadata, Name: metaName},
	} {
		plugin.Register(entry)
	}

	var blobNames []string
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		assert.Equal(t, plugin.PluginTypeBlob, entry.Type)
		blobNames = append(blobNames, entry.Name)
	}
	assert.Contains(t, blobNames, blobName1)
	assert.Contains(t, blobNames, blobName2)
	assert.NotContains(t, blobNames, metaName)
	assert.IsIncreasing(t, blobNames)

	var metaNames []string
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
		metaNames = append(metaNames, entry.Name)
	}
	assert.Contains(t, metaNames, metaName)
}

func TestGetPluginPassesConfig(t *testing.T) {
	pluginName := "test-config-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeMetadata,
		Name: pluginName,
		NewFromOptionsFunc: func(cfg plugin.Config) plugin.Plugin {
			return &mockPlugin{cfg: cfg}
		},
	})
	p := plugin.GetPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		plugin.Config{DataDir: "/tmp/x"},
	)
	require.NotNil(t, p)
	assert.Equal(t, "/tmp/x", p.(*mockPlugin).cfg.DataDir)

	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, "missing-"+t.Name(), plugin.Config{}))
}

func TestStartPlugin(t *testing.T) {
	okName := "ok-" + t.Name()
	failName := "fail-" + t.Name()
	startErr := errors.New("boom")
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               okName,
		NewFromOptionsFunc: func(plugin.Config) plugin.Plugin { return &mockPlugin{} },
	})
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: failName,
		NewFromOptionsFunc: func(plugin.Config) plugin.Plugin {
			return plugin.NewErrorPlugin(startErr)
		},
	})

	p, err := plugin.StartPlugin(plugin.PluginTypeBlob, okName, plugin.Config{})
	require.NoError(t, err)
	assert.True(t, p.(*mockPlugin).started)

	_, err = plugin.StartPlugin(plugin.PluginTypeBlob, failName, plugin.Config{})
	require.ErrorIs(t, err, startErr)

	_, err = plugin.StartPlugin(plugin.PluginTypeBlob, "missing-"+t.Name(), plugin.Config{})
	require.ErrorContains(t, err, "not found")
}

func TestSetPluginOption(t *testing.T) {
	var opts struct {
		name  string
		size  uint64
		gc    bool
		count int
	}
	pluginName := "options-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: pluginName,
		Options: []plugin.PluginOption{
			{Name: "name", Type: plugin.PluginOptionTypeString, DefaultValue: "", Dest: &opts.name},
			{Name: "size", Type: plugin.PluginOptionTypeUint, DefaultValue: uint64(0), Dest: &opts.size},
			{Name: "gc", Type: plugin.PluginOptionTypeBool, DefaultValue: false, Dest: &opts.gc},
			{Name: "count", Type: plugin.PluginOptionTypeInt, DefaultValue: 0, Dest: &opts.count},
		},
	})

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "name", "abc"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "size", uint64(1024)))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "gc", true))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "count", 3))
	assert.Equal(t, "abc", opts.name)
	assert.Equal(t, uint64(1024), opts.size)
	assert.True(t, opts.gc)
	assert.Equal(t, 3, opts.count)

	// Untyped int constants are accepted for uint options
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "size", 2048))
	assert.Equal(t, uint64(2048), opts.size)

	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "size", -1))
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "name", 123))
	// Unknown options are ignored
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, "nope", "x"))
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "missing-"+t.Name(), "name", "x"))
}

func TestPopulateCmdlineOptions(t *testing.T) {
	var cacheSize uint64
	pluginName := "flags" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: pluginName,
		Options: []plugin.PluginOption{
			{
				Name:         "cache-size",
				Type:         plugin.PluginOptionTypeUint,
				Description:  "cache size",
				DefaultValue: uint64(64),
				Dest:         &cacheSize,
			},
		},
	})
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	flagName := "blob-" + pluginName + "-cache-size"
	require.NotNil(t, fs.Lookup(flagName))
	assert.Equal(t, uint64(64), cacheSize)
	require.NoError(t, fs.Parse([]string{"--" + flagName + "=128"}))
	assert.Equal(t, uint64(128), cacheSize)
}
