package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgears/converter/document"
	"pdfgears/internal/pdftest"
)

func openDoc(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.Open(pdftest.Build(
		pdftest.TextPage("secret page one"),
		pdftest.TextPage("secret page two"),
	))
	require.NoError(t, err)
	return doc
}

func pageTexts(t *testing.T, doc *document.Document) []string {
	t.Helper()
	var out []string
	for _, p := range doc.Pages() {
		s, err := p.Text()
		require.NoError(t, err)
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// stubBackend fails or succeeds on demand and echoes a password in errors.
type stubBackend struct {
	name string
	alg  Algorithm
	err  error
	out  []byte
	used bool
}

func (s *stubBackend) Name() string         { return s.name }
func (s *stubBackend) Algorithm() Algorithm { return s.alg }
func (s *stubBackend) Available() bool      { return true }

func (s *stubBackend) Encrypt(data []byte, spec Spec) ([]byte, error) {
	s.used = true
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte("enc:"), data...), nil
}

func (s *stubBackend) Decrypt(data []byte, password string) ([]byte, error) {
	s.used = true
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func TestProtectUnlock_RoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmStrong, AlgorithmLegacy} {
		t.Run(string(alg), func(t *testing.T) {
			e := NewEngine()
			doc := openDoc(t)
			spec := NewSpec("hunter2")
			spec.Algorithm = alg

			res, err := e.Protect(doc, spec)
			require.NoError(t, err)
			assert.True(t, document.IsEncrypted(res.Data))
			assert.Equal(t, alg, res.Algorithm)
			assert.False(t, res.Fallback)

			_, err = document.Open(res.Data)
			assert.ErrorIs(t, err, document.ErrInvalidPassword)

			un, err := e.Unlock(res.Data, "hunter2")
			require.NoError(t, err)
			assert.NotEmpty(t, un.Backend)
			assert.Equal(t, doc.PageCount(), un.Document.PageCount())
			assert.Equal(t, pageTexts(t, doc), pageTexts(t, un.Document))
		})
	}
}

func TestUnlock_OwnerPasswordDefault(t *testing.T) {
	e := NewEngine(WithBackends(PDFCPU(AlgorithmLegacy)))
	res, err := e.Protect(openDoc(t), NewSpec("pw"))
	require.NoError(t, err)

	un, err := e.Unlock(res.Data, "pw_owner")
	require.NoError(t, err)
	assert.Equal(t, 2, un.Document.PageCount())
}

func TestUnlock_WrongPassword(t *testing.T) {
	e := NewEngine()
	res, err := e.Protect(openDoc(t), NewSpec("right"))
	require.NoError(t, err)

	un, err := e.Unlock(res.Data, "wrong")
	assert.Nil(t, un)
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrInvalidPassword)
	assert.NotContains(t, err.Error(), "wrong")
	assert.NotContains(t, err.Error(), "right")
}

func TestUnlock_EmptyUserPasswordOpensWithAnyPassword(t *testing.T) {
	data, err := openDoc(t).Encode()
	require.NoError(t, err)
	locked, err := PDFCPU(AlgorithmStrong).Encrypt(data, Spec{OwnerPassword: "ownerpw"})
	require.NoError(t, err)
	require.True(t, document.IsEncrypted(locked))

	un, err := NewEngine().Unlock(locked, "anything")
	require.NoError(t, err)
	assert.NotEmpty(t, un.Backend)
	assert.Equal(t, []string{"secret page one", "secret page two"}, pageTexts(t, un.Document))
}

func TestUnlock_NotEncryptedAccepted(t *testing.T) {
	data := pdftest.Build(pdftest.TextPage("plain"))
	un, err := NewEngine().Unlock(data, "anything")
	require.NoError(t, err)
	assert.Empty(t, un.Backend)
	assert.Equal(t, 1, un.Document.PageCount())
}

func TestProtect_RequiresPassword(t *testing.T) {
	_, err := NewEngine().Protect(openDoc(t), Spec{})
	assert.ErrorIs(t, err, document.ErrInvalidInput)
}

func TestProtect_FallbackIsReported(t *testing.T) {
	primary := &stubBackend{name: "primary", alg: AlgorithmStrong, err: errors.New("primary broke")}
	legacy := &stubBackend{name: "legacy", alg: AlgorithmLegacy}
	e := NewEngine(WithBackends(primary, legacy))

	res, err := e.Protect(openDoc(t), NewSpec("pw"))
	require.NoError(t, err)
	assert.True(t, primary.used)
	assert.Equal(t, "legacy", res.Backend)
	assert.Equal(t, AlgorithmLegacy, res.Algorithm)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Reason, "primary broke")
}

func TestProtect_LegacyRequestedSkipsStrong(t *testing.T) {
	strong := &stubBackend{name: "strong", alg: AlgorithmStrong}
	legacy := &stubBackend{name: "legacy", alg: AlgorithmLegacy}
	e := NewEngine(WithBackends(strong, legacy))

	spec := NewSpec("pw")
	spec.Algorithm = AlgorithmLegacy
	res, err := e.Protect(openDoc(t), spec)
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Backend)
	assert.False(t, res.Fallback)
	assert.False(t, strong.used)
}

func TestProtect_AllFailJoinsReasonsWithoutPasswords(t *testing.T) {
	a := &stubBackend{name: "a", alg: AlgorithmStrong, err: errors.New("cannot use s3cret here")}
	b := &stubBackend{name: "b", alg: AlgorithmLegacy, err: errors.New("owner s3cret_owner rejected")}
	e := NewEngine(WithBackends(a, b))

	_, err := e.Protect(openDoc(t), NewSpec("s3cret"))
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrConversionFailure)
	msg := err.Error()
	assert.Contains(t, msg, "a: cannot use *** here")
	assert.Contains(t, msg, "b: owner *** rejected")
	assert.NotContains(t, msg, "s3cret")
}

func TestUnlock_FormatErrorFallsBack(t *testing.T) {
	broken := &stubBackend{name: "broken", alg: AlgorithmStrong, err: errors.New("xref damaged")}
	ok := &stubBackend{name: "ok", alg: AlgorithmLegacy, out: pdftest.Build(pdftest.TextPage("x"))}
	e := NewEngine(WithBackends(broken, ok))

	un, err := e.Unlock([]byte("%PDF-1.7 /Encrypt 3 0 R"), "pw")
	require.NoError(t, err)
	assert.Equal(t, "ok", un.Backend)
	assert.True(t, broken.used)
}

func TestUnlock_WrongPasswordStopsChain(t *testing.T) {
	first := &stubBackend{name: "first", alg: AlgorithmStrong, err: errWrongPassword}
	second := &stubBackend{name: "second", alg: AlgorithmLegacy}
	e := NewEngine(WithBackends(first, second))

	_, err := e.Unlock([]byte("%PDF-1.7 /Encrypt 3 0 R"), "pw")
	assert.ErrorIs(t, err, document.ErrInvalidPassword)
	assert.False(t, second.used)
}

func TestPermissionFlags(t *testing.T) {
	assert.Equal(t, 0xF0C3, int(PermNone.Flags()))
	assert.Equal(t, 0xF0C3|4|2048, int(PermPrint.Flags()))
	all := int(PermAll.Flags())
	for _, bit := range []int{4, 16, 32} {
		assert.NotZero(t, all&bit, "bit %d", bit)
	}
	assert.Zero(t, all&8, "modify is never granted")
	assert.True(t, PermAll.Has(PermCopy))
	assert.False(t, (PermPrint | PermAnnotate).Has(PermCopy))
}

func TestSpec_ZeroValueGrantsAll(t *testing.T) {
	assert.Equal(t, PermAll, Spec{UserPassword: "x"}.Granted())
	assert.Equal(t, PermCopy|PermAnnotate, Spec{Denied: PermPrint}.Granted())

	res, err := NewEngine(WithBackends(PDFCPU(AlgorithmStrong))).Protect(openDoc(t), Spec{UserPassword: "x"})
	require.NoError(t, err)
	conf := document.NewConfig()
	conf.UserPW = "x"
	conf.OwnerPW = "x_owner"
	p, err := api.GetPermissions(bytes.NewReader(res.Data), conf)
	require.NoError(t, err)
	require.NotNil(t, p)
	bits := int(uint16(*p))
	for _, bit := range []int{pdfPrint, pdfCopy, pdfAnnotate} {
		assert.NotZero(t, bits&bit, "bit %d", bit)
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("legacy")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmLegacy, a)
	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmStrong, a)
	_, err = ParseAlgorithm("des")
	assert.ErrorIs(t, err, document.ErrInvalidInput)
}
