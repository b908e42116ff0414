package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/custodian/endorse"
)

var ErrNoSigner = errors.New("keys: no signer provided")

type Keyring struct {
	Dir string
}

type Entry struct {
	Name  string
	Roles []string
}

func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xdao", "custodian", "keys"), nil
}

// Open returns a keyring rooted at dir, or at DefaultDir when dir is empty.
func Open(dir string) (*Keyring, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	return &Keyring{Dir: dir}, nil
}

// CheckName accepts [A-Za-z0-9_-]+ for key names and roles.
func CheckName(s string) error {
	if s == "" {
		return errors.New("keys: name cannot be empty")
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in %q", r, s)
	}
	return nil
}

func ParseSeedHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: expected %d-byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func (k *Keyring) rootPath(name string) string { return filepath.Join(k.Dir, name, "root.key") }

func (k *Keyring) rolePath(name, role string) string {
	return filepath.Join(k.Dir, name, "roles", role+".key")
}

// Init stores seed as the root key of name.
func (k *Keyring) Init(name string, seed []byte, overwrite bool) (endorse.Signer, string, error) {
	if err := CheckName(name); err != nil {
		return nil, "", err
	}
	path := k.rootPath(name)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return nil, "", err
	}
	s, err := endorse.NewEd25519Signer(seed)
	return s, path, err
}

// Derive stores the role seed derived from name's root key.
func (k *Keyring) Derive(name, role string, overwrite bool) (endorse.Signer, string, error) {
	if err := CheckName(name); err != nil {
		return nil, "", err
	}
	root, err := readSeed(k.rootPath(name))
	if err != nil {
		return nil, "", err
	}
	seed, err := DeriveRoleSeed(root, role)
	if err != nil {
		return nil, "", err
	}
	path := k.rolePath(name, role)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return nil, "", err
	}
	s, err := endorse.NewEd25519Signer(seed)
	return s, path, err
}

// Signer loads name's root key, or its role key when role is set.
func (k *Keyring) Signer(name, role string) (endorse.Signer, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	path := k.rootPath(name)
	if role != "" {
		if err := CheckName(role); err != nil {
			return nil, err
		}
		path = k.rolePath(name, role)
	}
	seed, err := readSeed(path)
	if err != nil {
		return nil, err
	}
	return endorse.NewEd25519Signer(seed)
}

// Resolve picks a signer from the first source given: a literal hex seed,
// a seed file, or a keyring name (with optional role).
func (k *Keyring) Resolve(seedHex, keyFile, name, role string) (endorse.Signer, error) {
	switch {
	case seedHex != "":
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		return endorse.NewEd25519Signer(seed)
	case keyFile != "":
		seed, err := readSeed(keyFile)
		if err != nil {
			return nil, err
		}
		return endorse.NewEd25519Signer(seed)
	case name != "":
		return k.Signer(name, role)
	}
	return nil, ErrNoSigner
}

func (k *Keyring) List() ([]Entry, error) {
	dirs, err := os.ReadDir(k.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		e := Entry{Name: d.Name()}
		roles, err := os.ReadDir(filepath.Join(k.Dir, d.Name(), "roles"))
		if err == nil {
			for _, r := range roles {
				if !r.IsDir() && strings.HasSuffix(r.Name(), ".key") {
					e.Roles = append(e.Roles, strings.TrimSuffix(r.Name(), ".key"))
				}
			}
			sort.Strings(e.Roles)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("keys: expected %d-byte seed", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readSeed(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(b))
}
