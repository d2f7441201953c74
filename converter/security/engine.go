// Package security applies and removes PDF password protection through an
// ordered chain of encryption backends.
package security

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// Engine is the encryption engine.
type Engine struct {
	backends []Backend
	logger   logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackends replaces the default backend chain.
func WithBackends(b ...Backend) Option {
	return func(e *Engine) { e.backends = b }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine whose chain is pdfcpu AES-256, qpdf when
// installed, then pdfcpu RC4-128.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		backends: []Backend{PDFCPU(AlgorithmStrong), QPDF(), PDFCPU(AlgorithmLegacy)},
		logger:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Protected is the outcome of Protect.
type Protected struct {
	Data      []byte
	Backend   string
	Algorithm Algorithm
	// Fallback is set when the first backend failed; Reason says why.
	Fallback bool
	Reason   string
}

// chain returns the available backends, those applying alg first.
func (e *Engine) chain(alg Algorithm) []Backend {
	var out []Backend
	for _, b := range e.backends {
		if b.Available() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Algorithm() == alg && out[j].Algorithm() != alg
	})
	return out
}

// Protect encrypts doc. Backends are tried in order; a later backend is used
// only when every earlier one failed, and that is reported in the result.
// If all fail, every reason is joined into one error.
func (e *Engine) Protect(doc *document.Document, spec Spec) (*Protected, error) {
	if spec.UserPassword == "" {
		return nil, document.Errorf(document.KindInvalidInput, "protect", "a user password is required")
	}
	if spec.Algorithm == "" {
		spec.Algorithm = AlgorithmStrong
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}

	scrub := scrubber(spec.UserPassword, spec.owner())
	var reasons []string
	for _, b := range e.chain(spec.Algorithm) {
		log := e.logger.WithField("backend", b.Name())
		out, err := b.Encrypt(data, spec)
		if err != nil {
			reason := fmt.Sprintf("%s: %s", b.Name(), scrub(err.Error()))
			log.WithField("reason", reason).Warn("encryption backend failed")
			reasons = append(reasons, reason)
			continue
		}
		res := &Protected{Data: out, Backend: b.Name(), Algorithm: b.Algorithm()}
		if len(reasons) > 0 {
			res.Fallback = true
			res.Reason = strings.Join(reasons, "; ")
			log.WithField("algorithm", b.Algorithm()).Warn("document protected by fallback backend")
		} else {
			log.Debug("document protected")
		}
		return res, nil
	}
	if len(reasons) == 0 {
		return nil, document.Errorf(document.KindConversionFailure, "protect", "no encryption backend available")
	}
	return nil, document.Errorf(document.KindConversionFailure, "protect", "all encryption backends failed: %s", strings.Join(reasons, "; "))
}

// Unlocked is the outcome of Unlock.
type Unlocked struct {
	Document *document.Document
	// Backend is empty when the input was not encrypted.
	Backend string
}

// Unlock removes protection from data using password. Unencrypted input is
// accepted as is. A document whose user password is empty opens whatever
// password is given. A wrong password fails with InvalidPassword; other
// backend errors move on to the next backend.
func (e *Engine) Unlock(data []byte, password string) (*Unlocked, error) {
	if !document.IsEncrypted(data) {
		doc, err := document.Open(data)
		if err != nil {
			return nil, err
		}
		return &Unlocked{Document: doc}, nil
	}

	scrub := scrubber(password)
	var reasons []string
	for _, b := range e.chain(AlgorithmStrong) {
		out, err := b.Decrypt(data, password)
		if errors.Is(err, errWrongPassword) && password != "" {
			out, err = b.Decrypt(data, "")
		}
		if errors.Is(err, errWrongPassword) {
			return nil, document.Errorf(document.KindInvalidPassword, "unlock", "incorrect password")
		}
		if err != nil {
			reason := fmt.Sprintf("%s: %s", b.Name(), scrub(err.Error()))
			e.logger.WithField("backend", b.Name()).WithField("reason", reason).Warn("decryption backend failed")
			reasons = append(reasons, reason)
			continue
		}
		doc, err := document.Open(out)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %s", b.Name(), scrub(err.Error())))
			continue
		}
		return &Unlocked{Document: doc, Backend: b.Name()}, nil
	}
	if len(reasons) == 0 {
		return nil, document.Errorf(document.KindConversionFailure, "unlock", "no decryption backend available")
	}
	return nil, document.Errorf(document.KindConversionFailure, "unlock", "all decryption backends failed: %s", strings.Join(reasons, "; "))
}

// scrubber returns a function that masks every non-empty secret in s.
func scrubber(secrets ...string) func(string) string {
	var pairs []string
	sort.Slice(secrets, func(i, j int) bool { return len(secrets[i]) > len(secrets[j]) })
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, "***")
		}
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace
}
