package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// hclProfile is the on-disk HCL shape for a profile file, decoded with
// hclsimple and then converted to/from Profile — the same two-step
// decode-then-convert shape the teacher uses for its own HCL config
// (internal/core/hcl_config.go).
type hclProfile struct {
	Host                  string            `hcl:"host"`
	Port                  int               `hcl:"port,optional"`
	User                  string            `hcl:"user"`
	Auth                  *hclAuth          `hcl:"auth,block"`
	Tunnels               []hclTunnel       `hcl:"tunnel,block"`
	KeepaliveIntervalSecs int               `hcl:"keepalive_interval_secs,optional"`
	KeepaliveCount        int               `hcl:"keepalive_count,optional"`
	AutoReconnect         *bool             `hcl:"auto_reconnect,optional"`
	MaxReconnectAttempts  int               `hcl:"max_reconnect_attempts,optional"`
	ExtraOptions          map[string]string `hcl:"extra_options,optional"`
}

type hclAuth struct {
	Method string `hcl:"method"`
	Path   string `hcl:"path,optional"`
}

type hclTunnel struct {
	RemoteBind string `hcl:"remote_bind"`
	RemotePort int    `hcl:"remote_port"`
	LocalHost  string `hcl:"local_host"`
	LocalPort  int    `hcl:"local_port"`
}

// decodeHCL parses the bytes of a profile file. name is the filename stem
// and becomes Profile.Name, since the name is not part of the file body
// (spec §4.1: "File name is `{name}.{ext}`").
func decodeHCL(name string, data []byte) (Profile, error) {
	var raw hclProfile
	if err := hclsimple.Decode(name+".hcl", data, nil, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	p := Profile{
		Name:                  name,
		Host:                  raw.Host,
		Port:                  raw.Port,
		User:                  raw.User,
		KeepaliveIntervalSecs: raw.KeepaliveIntervalSecs,
		KeepaliveCount:        raw.KeepaliveCount,
		MaxReconnectAttempts:  raw.MaxReconnectAttempts,
		ExtraOptions:          raw.ExtraOptions,
	}
	if raw.AutoReconnect != nil {
		p.AutoReconnect = *raw.AutoReconnect
	} else {
		p.AutoReconnect = true
	}

	if raw.Auth != nil {
		p.Auth = Auth{Method: AuthMethod(raw.Auth.Method), Path: raw.Auth.Path}
	} else {
		p.Auth = Auth{Method: AuthAgent}
	}

	for _, t := range raw.Tunnels {
		p.Tunnels = append(p.Tunnels, Tunnel{
			RemoteBind: t.RemoteBind,
			RemotePort: t.RemotePort,
			LocalHost:  t.LocalHost,
			LocalPort:  t.LocalPort,
		})
	}

	return p.WithDefaults(), nil
}

// encodeHCL renders p as an HCL profile file body. It does not include the
// name, which lives in the filename.
func encodeHCL(p Profile) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "host = %s\n", quote(p.Host))
	fmt.Fprintf(&b, "port = %d\n", p.Port)
	fmt.Fprintf(&b, "user = %s\n\n", quote(p.User))

	fmt.Fprintf(&b, "auth {\n  method = %s\n", quote(string(p.Auth.Method)))
	if p.Auth.Method == AuthKeyFile {
		fmt.Fprintf(&b, "  path = %s\n", quote(p.Auth.Path))
	}
	b.WriteString("}\n\n")

	for _, t := range p.Tunnels {
		b.WriteString("tunnel {\n")
		fmt.Fprintf(&b, "  remote_bind = %s\n", quote(t.RemoteBind))
		fmt.Fprintf(&b, "  remote_port = %d\n", t.RemotePort)
		fmt.Fprintf(&b, "  local_host  = %s\n", quote(t.LocalHost))
		fmt.Fprintf(&b, "  local_port  = %d\n", t.LocalPort)
		b.WriteString("}\n\n")
	}

	fmt.Fprintf(&b, "keepalive_interval_secs = %d\n", p.KeepaliveIntervalSecs)
	fmt.Fprintf(&b, "keepalive_count         = %d\n", p.KeepaliveCount)
	fmt.Fprintf(&b, "auto_reconnect          = %t\n", p.AutoReconnect)
	fmt.Fprintf(&b, "max_reconnect_attempts  = %d\n", p.MaxReconnectAttempts)

	if len(p.ExtraOptions) > 0 {
		keys := make([]string, 0, len(p.ExtraOptions))
		for k := range p.ExtraOptions {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\nextra_options = {\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", quote(k), quote(p.ExtraOptions[k]))
		}
		b.WriteString("}\n")
	}

	return []byte(b.String())
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
