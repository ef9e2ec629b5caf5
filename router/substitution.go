// Package router implements the Agent Router: resolving a tool's routing
// configuration and discovered parameters into a single dispatch to a
// subprocess, HTTP endpoint, GraphQL server, gRPC service, SSE/websocket
// stream, or another external MCP server, and normalising whatever comes
// back into a uniform tool result.
package router

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	magictunnel "github.com/paularlott/magictunnel"
)

// Substitute expands every {ref} placeholder in template against params in
// a single pass: it never re-scans its own output, so a parameter value
// that happens to contain "{...}" is never treated as a nested reference.
// Supported reference grammar:
//
//	{name}             -> params["name"], stringified
//	{name[i]}          -> params["name"].([]any)[i], i >= 0
//	{name.field}       -> params["name"].(map[string]any)["field"]
//	{env.NAME}         -> os.Getenv("NAME"), opt-in per call via allowEnv
//	{name|default:"x"} -> params["name"] if present, else the literal x
//
// An undefined reference (missing param, out-of-range index, disallowed env
// lookup) returns a RoutingError{Kind: RoutingSubstitution} before any
// template output is produced and before any I/O takes place.
func Substitute(template string, params map[string]interface{}, allowEnv bool) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(template) {
		start := strings.IndexByte(template[i:], '{')
		if start < 0 {
			out.WriteString(template[i:])
			break
		}
		start += i
		out.WriteString(template[i:start])

		end := strings.IndexByte(template[start:], '}')
		if end < 0 {
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: template[start:]}
		}
		end += start

		ref := template[start+1 : end]
		value, err := resolveRef(ref, params, allowEnv)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
		i = end + 1
	}
	return out.String(), nil
}

func resolveRef(ref string, params map[string]interface{}, allowEnv bool) (string, error) {
	name, defaultVal, hasDefault := splitDefault(ref)

	if strings.HasPrefix(name, "env.") {
		if !allowEnv {
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
		}
		envName := strings.TrimPrefix(name, "env.")
		if v, ok := os.LookupEnv(envName); ok {
			return v, nil
		}
		if hasDefault {
			return defaultVal, nil
		}
		return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
	}

	if idx := strings.IndexByte(name, '['); idx >= 0 && strings.HasSuffix(name, "]") {
		base := name[:idx]
		idxStr := name[idx+1 : len(name)-1]
		n, err := strconv.Atoi(idxStr)
		if err != nil || n < 0 {
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
		}
		arr, ok := params[base].([]interface{})
		if !ok || n >= len(arr) {
			if hasDefault {
				return defaultVal, nil
			}
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
		}
		return stringify(arr[n]), nil
	}

	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		base := name[:dot]
		field := name[dot+1:]
		obj, ok := params[base].(map[string]interface{})
		if !ok {
			if hasDefault {
				return defaultVal, nil
			}
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
		}
		v, ok := obj[field]
		if !ok {
			if hasDefault {
				return defaultVal, nil
			}
			return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
		}
		return stringify(v), nil
	}

	v, ok := params[name]
	if !ok {
		if hasDefault {
			return defaultVal, nil
		}
		return "", &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: ref}
	}
	return stringify(v), nil
}

// splitDefault splits "name|default:\"x\"" into ("name", "x", true), or
// returns (ref, "", false) when there is no default clause.
func splitDefault(ref string) (name, defaultVal string, hasDefault bool) {
	parts := strings.SplitN(ref, "|", 2)
	if len(parts) != 2 {
		return ref, "", false
	}
	name = parts[0]
	clause := parts[1]
	const prefix = "default:"
	if !strings.HasPrefix(clause, prefix) {
		return name, "", false
	}
	val := strings.TrimPrefix(clause, prefix)
	val = strings.Trim(val, `"`)
	return name, val, true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
