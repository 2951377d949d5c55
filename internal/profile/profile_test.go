package profile

import (
	"errors"
	"testing"
)

func validProfile() Profile {
	p := Defaults()
	p.Name = "p1"
	p.Host = "h"
	p.User = "u"
	p.Auth = Auth{Method: AuthAgent}
	p.Tunnels = []Tunnel{{RemoteBind: "localhost", RemotePort: 8080, LocalHost: "localhost", LocalPort: 3000}}
	return p.WithDefaults()
}

func TestValidate_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p Profile) Profile
		wantErr bool
	}{
		{"one tunnel is valid", func(p Profile) Profile { return p }, false},
		{"zero tunnels invalid", func(p Profile) Profile { p.Tunnels = nil; return p }, true},
		{"port zero invalid", func(p Profile) Profile { p.Port = 0; return p }, true},
		{"port 65536 invalid", func(p Profile) Profile { p.Port = 65536; return p }, true},
		{"newline in user invalid", func(p Profile) Profile { p.User = "u\nx"; return p }, true},
		{"empty name invalid", func(p Profile) Profile { p.Name = ""; return p }, true},
		{"key_file without path invalid", func(p Profile) Profile {
			p.Auth = Auth{Method: AuthKeyFile}
			return p
		}, true},
		{"key_file with path valid", func(p Profile) Profile {
			p.Auth = Auth{Method: AuthKeyFile, Path: "/does/not/exist"}
			return p
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.mutate(validProfile())
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := validProfile()
	b := validProfile()
	if !a.Equal(b) {
		t.Fatal("identical profiles should be equal")
	}

	c := validProfile()
	c.Tunnels = append(c.Tunnels, Tunnel{RemoteBind: "localhost", RemotePort: 9090, LocalHost: "localhost", LocalPort: 4000})
	if a.Equal(c) {
		t.Fatal("profiles with different tunnels should not be equal")
	}

	d := validProfile()
	d.ExtraOptions = map[string]string{"Compression": "yes"}
	if a.Equal(d) {
		t.Fatal("profiles with different extra_options should not be equal")
	}
}
