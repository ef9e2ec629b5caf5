package external

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	magictunnel "github.com/paularlott/magictunnel"
)

// stdioTransport talks NDJSON MCP over a subprocess's stdin/stdout, one
// JSON-RPC message per line in both directions.
type stdioTransport struct {
	command string
	args    []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	corr    *correlator
	inbound InboundHandler
	done    chan struct{}
}

func newStdioTransport(command string, args []string) *stdioTransport {
	return &stdioTransport{
		command: command,
		args:    args,
		corr:    newCorrelator(),
		done:    make(chan struct{}),
	}
}

func (t *stdioTransport) SupportsInbound() bool { return true }

func (t *stdioTransport) SetInboundHandler(h InboundHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = h
}

func (t *stdioTransport) Connect(ctx context.Context) error {
	cmd := exec.Command(t.command, t.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("external: stdio stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("external: stdio stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("external: stdio start: %w", err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.mu.Unlock()

	go t.readLoop(stdout)
	return nil
}

func (t *stdioTransport) readLoop(stdout io.ReadCloser) {
	defer close(t.done)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t.dispatchLine(line)
	}
	t.corr.abortAll()
}

func (t *stdioTransport) dispatchLine(line []byte) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return
	}
	if probe.Method != nil {
		var req magictunnel.MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		t.handleInbound(&req)
		return
	}
	var resp magictunnel.MCPResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return
	}
	t.corr.deliver(&resp)
}

func (t *stdioTransport) handleInbound(req *magictunnel.MCPRequest) {
	t.mu.Lock()
	handler := t.inbound
	t.mu.Unlock()
	if handler == nil {
		return
	}
	go func() {
		resp, err := handler(context.Background(), req)
		if err != nil || resp == nil {
			return
		}
		t.writeLine(resp)
	}()
}

func (t *stdioTransport) writeLine(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stdin == nil {
		return fmt.Errorf("external: stdio transport not connected")
	}
	_, err = t.stdin.Write(b)
	return err
}

func (t *stdioTransport) Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	id := t.corr.nextID()
	req.ID = id
	ch := t.corr.register(id)

	if err := t.writeLine(req); err != nil {
		t.corr.cancel(id)
		return nil, fmt.Errorf("external: stdio write: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, fmt.Errorf("external: stdio transport closed while awaiting response")
		}
		return resp, nil
	case <-ctx.Done():
		t.corr.cancel(id)
		return nil, ctx.Err()
	}
}

func (t *stdioTransport) Close() error {
	t.mu.Lock()
	cmd := t.cmd
	stdin := t.stdin
	t.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	return nil
}
