package plugins

import (
	"fmt"
	"os/exec"
	"path/filepath"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/brynhild/brynhild/pkg/pluginsdk"
)

// LaunchTool starts <plugin>/tools/<binary> as a go-plugin subprocess and
// returns the client handle alongside its ToolPlugin interface. The caller
// owns calling Kill on the returned client when done.
func LaunchTool(p *Plugin, binary string) (*hcplugin.Client, pluginsdk.ToolPlugin, error) {
	path := filepath.Join(p.Path, "tools", binary)
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig: pluginsdk.Handshake,
		Plugins: map[string]hcplugin.Plugin{
			"tool": &pluginsdk.ToolPluginDispenser{},
		},
		Cmd:              exec.Command(path),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: launch tool %s/%s: %w", p.Manifest.Name, binary, err)
	}
	raw, err := rpcClient.Dispense("tool")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: dispense tool %s/%s: %w", p.Manifest.Name, binary, err)
	}
	tool, ok := raw.(pluginsdk.ToolPlugin)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: %s/%s did not implement ToolPlugin", p.Manifest.Name, binary)
	}
	return client, tool, nil
}

// LaunchProvider starts <plugin>/providers/<binary> as a go-plugin
// subprocess and returns the client handle alongside its ProviderPlugin
// interface.
func LaunchProvider(p *Plugin, binary string) (*hcplugin.Client, pluginsdk.ProviderPlugin, error) {
	path := filepath.Join(p.Path, "providers", binary)
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig: pluginsdk.Handshake,
		Plugins: map[string]hcplugin.Plugin{
			"provider": &pluginsdk.ProviderPluginDispenser{},
		},
		Cmd:              exec.Command(path),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: launch provider %s/%s: %w", p.Manifest.Name, binary, err)
	}
	raw, err := rpcClient.Dispense("provider")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: dispense provider %s/%s: %w", p.Manifest.Name, binary, err)
	}
	prov, ok := raw.(pluginsdk.ProviderPlugin)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugins: %s/%s did not implement ProviderPlugin", p.Manifest.Name, binary)
	}
	return client, prov, nil
}
