package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

// CredentialStore manages encrypted or plain-text API credentials
// (OpenAI / Anthropic keys, relay auth token).
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string // providerID → API key
	sshKeyPath  string
	encManager  *EncryptionManager
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		sshKeyPath:  sshKeyPath,
	}
}

// SetPassphrase sets the passphrase for decrypting the SSH key
func (c *CredentialStore) SetPassphrase(passphrase string) {
	if c.encManager != nil {
		c.encManager.SetPassphrase(passphrase)
	}
}

// Load loads credentials from disk based on the configured security method
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		creds, err := loadPlainText(dataDir)
		if err != nil {
			return err
		}
		c.credentials = creds
		return nil

	case SecuritySSHKey:
		creds, err := c.loadSSHEncrypted(dataDir)
		if err != nil {
			return err
		}
		c.credentials = creds
		return nil

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Save saves credentials to disk based on the configured security method
func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		return savePlainText(dataDir, c.credentials)

	case SecuritySSHKey:
		return c.saveSSHEncrypted(dataDir)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Get retrieves a credential for a provider
func (c *CredentialStore) Get(providerID string) string {
	return c.credentials[providerID]
}

// Set stores a credential for a provider
func (c *CredentialStore) Set(providerID string, apiKey string) {
	c.credentials[providerID] = apiKey
}

// Delete removes a credential for a provider
func (c *CredentialStore) Delete(providerID string) {
	delete(c.credentials, providerID)
}

// GetMethod returns the current security method
func (c *CredentialStore) GetMethod() SecurityMethod {
	return c.method
}

// SSHKeyPath returns the configured SSH key path (empty for plaintext stores)
func (c *CredentialStore) SSHKeyPath() string {
	return c.sshKeyPath
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}

func encryptedCredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.enc")
}

func loadPlainText(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	var creds map[string]string
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if creds == nil {
		creds = make(map[string]string)
	}
	return creds, nil
}

func savePlainText(dataDir string, creds map[string]string) error {
	path := credentialsPath(dataDir)
	// 0600 - contains API keys
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(creds); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) ensureEncManager() error {
	if c.encManager != nil {
		return nil
	}
	c.encManager = NewEncryptionManager(EncryptionSSHKey, c.sshKeyPath)
	return c.encManager.Initialize()
}

func (c *CredentialStore) loadSSHEncrypted(dataDir string) (map[string]string, error) {
	path := encryptedCredentialsPath(dataDir)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	if err := c.ensureEncManager(); err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	plaintext, err := c.encManager.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

func (c *CredentialStore) saveSSHEncrypted(dataDir string) error {
	if err := c.ensureEncManager(); err != nil {
		return err
	}

	plaintext, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	ciphertext, err := c.encManager.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.WriteFile(encryptedCredentialsPath(dataDir), ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
