package magictunnel

// ClientCapabilities mirrors the subset of MCP client capabilities this proxy
// cares about for bidirectional forwarding: can the originating client
// actually service a sampling/createMessage or elicitation/request call that
// an external MCP server sends upstream through us.
type ClientCapabilities struct {
	Sampling    bool `json:"sampling,omitempty"`
	Elicitation bool `json:"elicitation,omitempty"`
	Roots       bool `json:"roots,omitempty"`
}

// ProxyCapabilities are the capabilities magictunneld itself is willing to
// advertise to external MCP servers and relay on behalf of a client.
type ProxyCapabilities struct {
	Sampling    bool
	Elicitation bool
	Roots       bool
}

// Intersect computes the capability set advertised to an external MCP server:
// the proxy only forwards what both itself and the originating client support.
// Per the forwarding contract, a server asking for a capability outside this
// intersection gets CapabilityMissing rather than a forwarded, doomed request.
func (p ProxyCapabilities) Intersect(c ClientCapabilities) ClientCapabilities {
	return ClientCapabilities{
		Sampling:    p.Sampling && c.Sampling,
		Elicitation: p.Elicitation && c.Elicitation,
		Roots:       p.Roots && c.Roots,
	}
}

// ParseClientCapabilities extracts ClientCapabilities from the raw
// initialize params capabilities map sent by an MCP client.
func ParseClientCapabilities(raw map[string]interface{}) ClientCapabilities {
	var caps ClientCapabilities
	if raw == nil {
		return caps
	}
	if _, ok := raw["sampling"]; ok {
		caps.Sampling = true
	}
	if _, ok := raw["elicitation"]; ok {
		caps.Elicitation = true
	}
	if _, ok := raw["roots"]; ok {
		caps.Roots = true
	}
	return caps
}
