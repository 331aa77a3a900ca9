package config

import "fmt"

// AuthType enumerates supported authentication methods (stringly for YAML compatibility)
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
)

// AuthConfig represents git authentication for a component or the publish remote.
type AuthConfig struct {
	Type     AuthType `yaml:"type"` // ssh|token|basic|none
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty"`
}

// IsZero reports whether no auth method specified.
func (a *AuthConfig) IsZero() bool { return a == nil || a.Type == "" || a.Type == AuthTypeNone }

// Validate checks that the fields required by the auth type are present.
func (a *AuthConfig) Validate() error {
	if a.IsZero() {
		return nil
	}
	switch a.Type {
	case AuthTypeSSH:
		return nil
	case AuthTypeToken:
		if a.Token == "" {
			return fmt.Errorf("token authentication requires a token")
		}
	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("basic authentication requires username and password")
		}
	default:
		return fmt.Errorf("unsupported authentication type: %s", a.Type)
	}
	return nil
}
