package security

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdfgears/converter/document"
)

// Algorithm names the cipher family a backend applies.
type Algorithm string

const (
	// AlgorithmStrong is AES with a 256-bit key.
	AlgorithmStrong Algorithm = "aes-256"
	// AlgorithmLegacy is RC4 with a 128-bit key, readable by old viewers.
	AlgorithmLegacy Algorithm = "rc4-128"
)

// ParseAlgorithm accepts "strong", "legacy" or the cipher names.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "strong", string(AlgorithmStrong), "aes":
		return AlgorithmStrong, nil
	case "legacy", string(AlgorithmLegacy), "rc4":
		return AlgorithmLegacy, nil
	}
	return "", document.Errorf(document.KindInvalidInput, "protect", "unknown algorithm %q", s)
}

// Permission is a set of user rights granted on an encrypted document.
type Permission int

const (
	PermPrint Permission = 1 << iota
	PermCopy
	PermAnnotate

	PermNone Permission = 0
	PermAll             = PermPrint | PermCopy | PermAnnotate
)

func (p Permission) Has(q Permission) bool { return p&q == q }

// PDF permission bits (ISO 32000-1, table 22), 1-based bit n has value 1<<(n-1).
const (
	pdfReserved     = 0xF0C3
	pdfPrint        = 1 << 2
	pdfCopy         = 1 << 4
	pdfAnnotate     = 1 << 5
	pdfFillForms    = 1 << 8
	pdfAccessCopy   = 1 << 9
	pdfPrintHighRes = 1 << 11
)

// Flags converts p into the /P value written into the encryption dictionary.
// Modification and page assembly are never granted.
func (p Permission) Flags() model.PermissionFlags {
	bits := pdfReserved
	if p.Has(PermPrint) {
		bits |= pdfPrint | pdfPrintHighRes
	}
	if p.Has(PermCopy) {
		bits |= pdfCopy | pdfAccessCopy
	}
	if p.Has(PermAnnotate) {
		bits |= pdfAnnotate | pdfFillForms
	}
	return model.PermissionFlags(bits)
}

// Spec describes how to protect a document.
type Spec struct {
	UserPassword string
	// OwnerPassword defaults to UserPassword + "_owner".
	OwnerPassword string
	// Denied lists the rights withheld from the user. The zero value grants
	// every permission.
	Denied    Permission
	Algorithm Algorithm
}

// NewSpec returns a Spec with every permission granted and strong encryption.
func NewSpec(userPassword string) Spec {
	return Spec{UserPassword: userPassword, Algorithm: AlgorithmStrong}
}

// Granted is the set of rights the user keeps.
func (s Spec) Granted() Permission { return PermAll &^ s.Denied }

func (s Spec) owner() string {
	if s.OwnerPassword != "" {
		return s.OwnerPassword
	}
	return s.UserPassword + "_owner"
}
