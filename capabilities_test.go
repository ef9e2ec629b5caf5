package magictunnel

import "testing"

func TestProxyCapabilities_Intersect(t *testing.T) {
	tests := []struct {
		name  string
		proxy ProxyCapabilities
		client ClientCapabilities
		want  ClientCapabilities
	}{
		{
			name:   "both support sampling",
			proxy:  ProxyCapabilities{Sampling: true},
			client: ClientCapabilities{Sampling: true},
			want:   ClientCapabilities{Sampling: true},
		},
		{
			name:   "proxy lacks elicitation",
			proxy:  ProxyCapabilities{Elicitation: false},
			client: ClientCapabilities{Elicitation: true},
			want:   ClientCapabilities{Elicitation: false},
		},
		{
			name:   "client lacks sampling",
			proxy:  ProxyCapabilities{Sampling: true},
			client: ClientCapabilities{Sampling: false},
			want:   ClientCapabilities{Sampling: false},
		},
		{
			name:   "all three intersect",
			proxy:  ProxyCapabilities{Sampling: true, Elicitation: true, Roots: true},
			client: ClientCapabilities{Sampling: true, Elicitation: true, Roots: true},
			want:   ClientCapabilities{Sampling: true, Elicitation: true, Roots: true},
		},
		{
			name:   "neither supports anything",
			proxy:  ProxyCapabilities{},
			client: ClientCapabilities{},
			want:   ClientCapabilities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.proxy.Intersect(tt.client)
			if got != tt.want {
				t.Fatalf("Intersect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseClientCapabilities_NilReturnsZeroValue(t *testing.T) {
	if got := ParseClientCapabilities(nil); got != (ClientCapabilities{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestParseClientCapabilities_DetectsPresentKeys(t *testing.T) {
	got := ParseClientCapabilities(map[string]interface{}{
		"sampling": map[string]interface{}{},
		"roots":    map[string]interface{}{"listChanged": true},
	})
	want := ClientCapabilities{Sampling: true, Elicitation: false, Roots: true}
	if got != want {
		t.Fatalf("ParseClientCapabilities() = %+v, want %+v", got, want)
	}
}
