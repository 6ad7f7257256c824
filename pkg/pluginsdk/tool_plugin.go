package pluginsdk

import (
	"encoding/json"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is shared by every plugin kind so the host and a plugin
// subprocess agree they're speaking the same protocol version.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BRYNHILD_PLUGIN",
	MagicCookieValue: "brynhild",
}

// ToolExecuteArgs is the RPC argument for ToolPlugin.Execute.
type ToolExecuteArgs struct {
	Input json.RawMessage
}

// ToolExecuteReply is the RPC result for ToolPlugin.Execute.
type ToolExecuteReply struct {
	Success bool
	Output  string
	Error   string
}

// ToolDescribeReply describes a tool's static contract.
type ToolDescribeReply struct {
	Name               string
	Description        string
	InputSchema        json.RawMessage
	RequiresPermission bool
}

// ToolPlugin is implemented by a subprocess that exposes one tool. Describe
// is called once at load time; Execute is called once per invocation.
type ToolPlugin interface {
	Describe() (ToolDescribeReply, error)
	Execute(input json.RawMessage) (ToolExecuteReply, error)
}

// ToolRPCServer adapts a ToolPlugin to net/rpc.
type ToolRPCServer struct {
	Impl ToolPlugin
}

func (s *ToolRPCServer) Describe(_ struct{}, reply *ToolDescribeReply) error {
	d, err := s.Impl.Describe()
	if err != nil {
		return err
	}
	*reply = d
	return nil
}

func (s *ToolRPCServer) Execute(args ToolExecuteArgs, reply *ToolExecuteReply) error {
	r, err := s.Impl.Execute(args.Input)
	if err != nil {
		return err
	}
	*reply = r
	return nil
}

// ToolRPCClient adapts a net/rpc client to ToolPlugin.
type ToolRPCClient struct{ client *rpc.Client }

func (c *ToolRPCClient) Describe() (ToolDescribeReply, error) {
	var reply ToolDescribeReply
	err := c.client.Call("Plugin.Describe", struct{}{}, &reply)
	return reply, err
}

func (c *ToolRPCClient) Execute(input json.RawMessage) (ToolExecuteReply, error) {
	var reply ToolExecuteReply
	err := c.client.Call("Plugin.Execute", ToolExecuteArgs{Input: input}, &reply)
	return reply, err
}

// ToolPluginDispenser implements plugin.Plugin for the tool kind.
type ToolPluginDispenser struct {
	Impl ToolPlugin
}

func (p *ToolPluginDispenser) Server(*plugin.MuxBroker) (any, error) {
	return &ToolRPCServer{Impl: p.Impl}, nil
}

func (p *ToolPluginDispenser) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &ToolRPCClient{client: c}, nil
}
