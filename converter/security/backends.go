package security

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdfgears/converter/document"
)

// Backend applies and removes password protection.
type Backend interface {
	Name() string
	Algorithm() Algorithm
	Available() bool
	Encrypt(data []byte, spec Spec) ([]byte, error)
	Decrypt(data []byte, password string) ([]byte, error)
}

// errWrongPassword marks a backend failure caused by the supplied password.
var errWrongPassword = errors.New("wrong password")

// PDFCPU returns the pure Go backend writing AES-256 (strong) or RC4-128
// (legacy).
func PDFCPU(alg Algorithm) Backend {
	return pdfcpuBackend{alg: alg}
}

type pdfcpuBackend struct {
	alg Algorithm
}

func (b pdfcpuBackend) Name() string         { return "pdfcpu-" + string(b.alg) }
func (b pdfcpuBackend) Algorithm() Algorithm { return b.alg }
func (b pdfcpuBackend) Available() bool      { return true }

func (b pdfcpuBackend) config() *model.Configuration {
	conf := document.NewConfig()
	if b.alg == AlgorithmLegacy {
		conf.EncryptUsingAES = false
		conf.EncryptKeyLength = 128
	} else {
		conf.EncryptUsingAES = true
		conf.EncryptKeyLength = 256
	}
	return conf
}

func (b pdfcpuBackend) Encrypt(data []byte, spec Spec) ([]byte, error) {
	conf := b.config()
	conf.UserPW = spec.UserPassword
	conf.OwnerPW = spec.owner()
	conf.Permissions = spec.Granted().Flags()

	var buf bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b pdfcpuBackend) Decrypt(data []byte, password string) ([]byte, error) {
	conf := b.config()
	conf.UserPW = password
	conf.OwnerPW = password

	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &buf, conf); err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) || strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, fmt.Errorf("%w: %v", errWrongPassword, err)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// qpdfLookPath is swapped by tests.
var qpdfLookPath = exec.LookPath

// QPDF runs the qpdf command line tool with AES-256. It is used only when the
// binary is installed.
func QPDF() Backend { return qpdfBackend{} }

type qpdfBackend struct{}

func (qpdfBackend) Name() string         { return "qpdf" }
func (qpdfBackend) Algorithm() Algorithm { return AlgorithmStrong }

func (qpdfBackend) Available() bool {
	_, err := qpdfLookPath("qpdf")
	return err == nil
}

func yn(ok bool) string {
	if ok {
		return "y"
	}
	return "n"
}

func (b qpdfBackend) Encrypt(data []byte, spec Spec) ([]byte, error) {
	granted := spec.Granted()
	printMode := "none"
	if granted.Has(PermPrint) {
		printMode = "full"
	}
	return b.run(data, func(in, out string) []string {
		return []string{
			"--encrypt", spec.UserPassword, spec.owner(), "256",
			"--print=" + printMode,
			"--extract=" + yn(granted.Has(PermCopy)),
			"--annotate=" + yn(granted.Has(PermAnnotate)),
			"--modify=none",
			"--",
			in, out,
		}
	})
}

func (b qpdfBackend) Decrypt(data []byte, password string) ([]byte, error) {
	return b.run(data, func(in, out string) []string {
		return []string{"--password=" + password, "--decrypt", in, out}
	})
}

func (qpdfBackend) run(data []byte, args func(in, out string) []string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "pdfgears-qpdf-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	output, err := exec.Command("qpdf", args(in, out)...).CombinedOutput()
	// exit status 3 means success with warnings
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 3) {
		msg := strings.TrimSpace(string(output))
		if strings.Contains(strings.ToLower(msg), "invalid password") {
			return nil, fmt.Errorf("%w: %s", errWrongPassword, msg)
		}
		return nil, fmt.Errorf("qpdf failed: %w: %s", err, msg)
	}
	return os.ReadFile(out)
}
