// Package security stores the warehouse password outside config files:
// in the OS keyring when one is available, otherwise in an AES-256-GCM
// encrypted file under the user's config directory.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"canvasetl/pkg/errors"
)

const (
	keyringService   = "canvasetl"
	saltSize         = 32
	pbkdf2Iterations = 100000
	keySize          = 32 // AES-256
)

// Credential is one stored secret with its metadata.
type Credential struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     string            `json:"value"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Encrypted bool              `json:"encrypted"`
}

// Store reads and writes credentials. Construction decides the backend
// once: keyring when available, encrypted files otherwise.
type Store struct {
	useKeyring bool
	masterKey  []byte
	dir        string
}

// NewStore creates a credential store rooted at ~/.canvasetl/credentials.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot resolve home directory")
	}
	return newStore(filepath.Join(home, ".canvasetl", "credentials"), keyringAvailable())
}

func newStore(dir string, useKeyring bool) (*Store, error) {
	s := &Store{useKeyring: useKeyring, dir: dir}
	if !s.useKeyring {
		key, err := s.loadOrCreateMasterKey()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to initialize master key")
		}
		s.masterKey = key
	}
	return s, nil
}

// Set stores a credential under the given name.
func (s *Store) Set(name, credType, value string, metadata map[string]string) error {
	if s.useKeyring {
		cred := Credential{Name: name, Type: credType, Value: value, Metadata: metadata}
		data, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		if err := keyring.Set(keyringService, name, string(data)); err != nil {
			return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to store in keyring").
				WithContext("name", name)
		}
		return nil
	}

	encrypted, err := s.encrypt(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to encrypt credential").
			WithContext("name", name)
	}
	cred := Credential{Name: name, Type: credType, Value: encrypted, Metadata: metadata, Encrypted: true}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(s.credentialPath(name), data, 0600)
}

// Get retrieves a credential by name. The returned value is always
// plaintext.
func (s *Store) Get(name string) (*Credential, error) {
	if s.useKeyring {
		data, err := keyring.Get(keyringService, name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCredentialNotFound, "credential not found").
				WithContext("name", name)
		}
		var cred Credential
		if err := json.Unmarshal([]byte(data), &cred); err != nil {
			return nil, err
		}
		return &cred, nil
	}

	data, err := os.ReadFile(s.credentialPath(name)) // #nosec G304 - path is derived from the store directory
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCredentialNotFound, "credential not found").
			WithContext("name", name)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	if cred.Encrypted {
		plaintext, err := s.decrypt(cred.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to decrypt credential").
				WithContext("name", name)
		}
		cred.Value = plaintext
		cred.Encrypted = false
	}
	return &cred, nil
}

// Delete removes a stored credential.
func (s *Store) Delete(name string) error {
	if s.useKeyring {
		return keyring.Delete(keyringService, name)
	}
	return os.Remove(s.credentialPath(name))
}

// List returns the names of file-stored credentials. Keyring backends do
// not support enumeration; List returns nil there.
func (s *Store) List() ([]string, error) {
	if s.useKeyring {
		return nil, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".cred") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".cred"))
		}
	}
	return names, nil
}

func (s *Store) credentialPath(name string) string {
	// Credential names come from our own code, but flatten anything
	// path-like just in case.
	name = filepath.Base(name)
	return filepath.Join(s.dir, name+".cred")
}

func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New(errors.ErrCodeEncryptionFailed, "ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// loadOrCreateMasterKey derives a machine-bound key via PBKDF2 on first
// use and persists salt+key next to the credentials.
func (s *Store) loadOrCreateMasterKey() ([]byte, error) {
	keyPath := filepath.Join(s.dir, ".master")

	data, err := os.ReadFile(keyPath) // #nosec G304 - fixed path under the store directory
	if err == nil {
		if len(data) != saltSize+keySize {
			return nil, errors.New(errors.ErrCodeEncryptionFailed, "invalid master key file size")
		}
		return data[saltSize:], nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(machineID()), salt, pbkdf2Iterations, keySize, sha256.New)

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, append(salt, key...), 0600); err != nil {
		return nil, err
	}
	return key, nil
}

func keyringAvailable() bool {
	if os.Getenv("CANVASETL_USE_KEYRING") == "false" {
		return false
	}

	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return false
}

func machineID() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}

	data := strings.Join([]string{hostname, user, runtime.GOOS, runtime.GOARCH}, "-")
	hash := sha256.Sum256([]byte(data))
	return base64.StdEncoding.EncodeToString(hash[:])
}
