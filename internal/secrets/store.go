package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/juju/errors"
)

// per-user store of server API keys (file, 0600) with AES-GCM obfuscation.
// Not a replacement for OS keychains but keeps keys out of config.toml.

const fileName = "keys.json"

type secretFile struct {
	Keys map[string]string `json:"keys"` // server url -> base64(ciphertext)
}

// Store keeps keys in Dir. An empty Dir means the user config directory.
type Store struct {
	Dir string
}

// StoreServerKey saves key for the server at url, replacing any previous key.
func (s Store) StoreServerKey(url, key string) error {
	if url = norm(url); url == "" {
		return errors.NotValidf("empty server url")
	}
	if strings.TrimSpace(key) == "" {
		return errors.NotValidf("empty key")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	if sf.Keys == nil {
		sf.Keys = map[string]string{}
	}
	ct, err := encrypt([]byte(strings.TrimSpace(key)))
	if err != nil {
		return errors.Annotate(err, "encrypt key")
	}
	sf.Keys[url] = base64.StdEncoding.EncodeToString(ct)
	return save(path, sf)
}

// FetchServerKey returns the key saved for url, or a NotFound error.
func (s Store) FetchServerKey(url string) (string, error) {
	if url = norm(url); url == "" {
		return "", errors.NotValidf("empty server url")
	}
	path, err := s.filePath()
	if err != nil {
		return "", err
	}
	sf, err := load(path)
	if err != nil {
		return "", err
	}
	enc, ok := sf.Keys[url]
	if !ok {
		return "", errors.NotFoundf("key for %s", url)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", errors.Annotatef(err, "decode key for %s", url)
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", errors.Annotatef(err, "decrypt key for %s", url)
	}
	return string(pt), nil
}

// DeleteServerKey forgets the key for url. Deleting a missing key is not an error.
func (s Store) DeleteServerKey(url string) error {
	if url = norm(url); url == "" {
		return errors.NotValidf("empty server url")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	sf, err := load(path)
	if err != nil {
		return err
	}
	if _, ok := sf.Keys[url]; !ok {
		return nil
	}
	delete(sf.Keys, url)
	return save(path, sf)
}

func (s Store) filePath() (string, error) {
	dir := s.Dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", errors.Trace(err)
		}
		dir = filepath.Join(base, "compass")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil { // restrict directory
		return "", errors.Trace(err)
	}
	return filepath.Join(dir, fileName), nil
}

func load(path string) (secretFile, error) {
	var sf secretFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return secretFile{}, nil
		}
		return sf, errors.Trace(err)
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, errors.NotValidf("key file %s: %v", path, err)
	}
	return sf, nil
}

func save(path string, sf secretFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(tmp, path))
}

// norm lowercases the url and drops trailing slashes so
// http://host:8888/ and http://HOST:8888 share a key.
func norm(s string) string {
	return strings.TrimRight(strings.TrimSpace(strings.ToLower(s)), "/")
}

func masterKey() []byte {
	base := fmt.Sprintf("compass-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
