// Package credentials loads the signing key from the credential file,
// prompting for one and saving it when the file is missing or unusable.
package credentials

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// MaxAttempts is how many times a key is prompted for before giving up.
const MaxAttempts = 3

// ErrNoKey is returned when no valid key was entered within MaxAttempts.
var ErrNoKey = errors.New("credentials: no valid private key entered")

// File is the credential file format.
type File struct {
	PrivateKey string `json:"privateKey"`
}

// DefaultPath is ~/.chainsnake/credentials.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chainsnake", "credentials.json")
}

// Load reads and validates the credential file at path.
func Load(path string) (*chain.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	id, err := chain.NewIdentity(f.PrivateKey)
	if err != nil {
		return nil, errors.Wrapf(err, "key in %s", path)
	}
	return id, nil
}

// Save writes the identity's key to path with owner-only permissions.
func Save(path string, id *chain.Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&File{PrivateKey: id.HexKey()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Prompter reads a secret from the user.
type Prompter interface {
	Prompt(label string) (string, error)
}

// Terminal prompts on the controlling terminal without echo, falling back to
// a plain line read when stdin is not a terminal.
type Terminal struct {
	In  *os.File
	Out io.Writer
}

// Prompt implements Prompter.
func (t Terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.Out, label)
	defer fmt.Fprintln(t.Out)

	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetOrCreate loads the key at path. If the file is missing or unusable the
// user is prompted up to MaxAttempts times and the first valid key is saved.
func GetOrCreate(path string, p Prompter) (*chain.Identity, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !os.IsNotExist(errors.Cause(err)) {
		log.WithError(err).WithField("path", path).Warn("credential file unusable, prompting for a key")
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		key, err := p.Prompt("Private key (hex): ")
		if err != nil {
			return nil, errors.Wrap(err, "credentials: prompt")
		}
		id, err := chain.NewIdentity(strings.TrimSpace(key))
		if err != nil {
			log.WithField("attempt", attempt).Warn("not a valid private key")
			continue
		}
		if err := Save(path, id); err != nil {
			return nil, errors.Wrapf(err, "credentials: save %s", path)
		}
		log.WithField("path", path).WithField("address", id.String()).Info("saved credentials")
		return id, nil
	}
	return nil, ErrNoKey
}
