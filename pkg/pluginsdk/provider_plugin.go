package pluginsdk

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// ProviderCompleteArgs is the RPC argument for ProviderPlugin.Complete.
type ProviderCompleteArgs struct {
	Model       string
	System      string
	MessagesJSON string // JSON-encoded []models.Message, kept opaque to the RPC layer
	MaxTokens   int
}

// ProviderCompleteReply is the RPC result for ProviderPlugin.Complete.
type ProviderCompleteReply struct {
	ContentJSON string // JSON-encoded provider response
	Error       string
}

// ProviderDescribeReply describes a provider's identity.
type ProviderDescribeReply struct {
	Name  string
	Model string
}

// ProviderPlugin is implemented by a subprocess that exposes one LLM
// provider's non-streaming completion call. Streaming providers are
// integrated in-process via pkg/provider.LLMProvider instead, since a
// subprocess round-trip is a poor fit for per-token delivery; a plugin
// provider is a completion-only fallback.
type ProviderPlugin interface {
	Describe() (ProviderDescribeReply, error)
	Complete(args ProviderCompleteArgs) (ProviderCompleteReply, error)
}

// ProviderRPCServer adapts a ProviderPlugin to net/rpc.
type ProviderRPCServer struct {
	Impl ProviderPlugin
}

func (s *ProviderRPCServer) Describe(_ struct{}, reply *ProviderDescribeReply) error {
	d, err := s.Impl.Describe()
	if err != nil {
		return err
	}
	*reply = d
	return nil
}

func (s *ProviderRPCServer) Complete(args ProviderCompleteArgs, reply *ProviderCompleteReply) error {
	r, err := s.Impl.Complete(args)
	if err != nil {
		return err
	}
	*reply = r
	return nil
}

// ProviderRPCClient adapts a net/rpc client to ProviderPlugin.
type ProviderRPCClient struct{ client *rpc.Client }

func (c *ProviderRPCClient) Describe() (ProviderDescribeReply, error) {
	var reply ProviderDescribeReply
	err := c.client.Call("Plugin.Describe", struct{}{}, &reply)
	return reply, err
}

func (c *ProviderRPCClient) Complete(args ProviderCompleteArgs) (ProviderCompleteReply, error) {
	var reply ProviderCompleteReply
	err := c.client.Call("Plugin.Complete", args, &reply)
	return reply, err
}

// ProviderPluginDispenser implements plugin.Plugin for the provider kind.
type ProviderPluginDispenser struct {
	Impl ProviderPlugin
}

func (p *ProviderPluginDispenser) Server(*plugin.MuxBroker) (any, error) {
	return &ProviderRPCServer{Impl: p.Impl}, nil
}

func (p *ProviderPluginDispenser) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &ProviderRPCClient{client: c}, nil
}
