package serviceaccount

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lucidrepo/lucid-backend/pkg/config"
)

const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// ErrNoCredentials is returned when neither inline JSON nor a credentials
// file is configured.
var ErrNoCredentials = errors.New("no service account credentials configured")

// Credentials is a parsed service-account identity.
type Credentials struct {
	ClientEmail string
	TokenURI    string
	key         *rsa.PrivateKey
}

type credentialsFile struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ParseCredentials decodes a service-account JSON document.
func ParseCredentials(raw []byte) (*Credentials, error) {
	var file credentialsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if strings.TrimSpace(file.ClientEmail) == "" || strings.TrimSpace(file.PrivateKey) == "" {
		return nil, errors.New("invalid service account credentials")
	}
	key, err := parsePrivateKey(file.PrivateKey)
	if err != nil {
		return nil, err
	}
	tokenURI := strings.TrimSpace(file.TokenURI)
	if tokenURI == "" {
		tokenURI = DefaultTokenURI
	}
	return &Credentials{
		ClientEmail: file.ClientEmail,
		TokenURI:    tokenURI,
		key:         key,
	}, nil
}

// Load reads credentials from the inline JSON secret, falling back to the
// credentials file path.
func Load(cfg config.GCPConfig) (*Credentials, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return ParseCredentials([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		raw, err := os.ReadFile(cfg.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return ParseCredentials(raw)
	default:
		return nil, ErrNoCredentials
	}
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
		return nil, errors.New("private key is not RSA")
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}
