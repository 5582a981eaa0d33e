package credential

import (
	"context"
	"crypto/sha256"
	"sync"
	"testing"

	"github.com/sage-x-project/lake/lakeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByKid(t *testing.T) {
	known := []Known{
		{Kid: []byte("device-1"), Cred: []byte("cred-1"), PK: []byte("pk-1")},
	}
	r := NewResolver(known, nil, nil)

	cred, pk, err := r.Resolve(context.Background(), IDCred{Label: LabelKid, Kid: []byte("device-1")})
	require.NoError(t, err)
	assert.Equal(t, []byte("cred-1"), cred)
	assert.Equal(t, []byte("pk-1"), pk)
}

func TestResolveByKidNotFound(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	_, _, err := r.Resolve(context.Background(), IDCred{Label: LabelKid, Kid: []byte("missing")})
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.CredNotFound))
}

func TestResolveByKidAmbiguous(t *testing.T) {
	known := []Known{
		{Kid: []byte("dup"), Cred: []byte("a"), PK: []byte("pk-a")},
		{Kid: []byte("dup"), Cred: []byte("b"), PK: []byte("pk-b")},
	}
	r := NewResolver(known, nil, nil)
	_, _, err := r.Resolve(context.Background(), IDCred{Label: LabelKid, Kid: []byte("dup")})
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.CredAmbiguous))
}

func TestResolveByDigest(t *testing.T) {
	cred := []byte("some-ccs-credential")
	digest := sha256.Sum256(cred)
	known := []Known{{Cred: cred, PK: []byte("pk")}}
	r := NewResolver(known, nil, nil)

	got, pk, err := r.Resolve(context.Background(), IDCred{Label: LabelX5T, X5T: digest[:], X5TAlg: HashSHA256})
	require.NoError(t, err)
	assert.Equal(t, cred, got)
	assert.Equal(t, []byte("pk"), pk)
}

func TestResolveX5URejected(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	_, _, err := r.Resolve(context.Background(), IDCred{Label: LabelX5U})
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.CredFetchUnsupported))
}

type stubVerifier struct {
	calls int
	cred  []byte
	pk    []byte
}

func (s *stubVerifier) VerifyCertificateChain(ctx context.Context, chainBytes []byte, trustAnchors [][]byte) ([]byte, []byte, error) {
	s.calls++
	return s.cred, s.pk, nil
}

func TestResolveX5ChainCoalescesConcurrentCalls(t *testing.T) {
	v := &stubVerifier{cred: []byte("leaf-cred"), pk: []byte("leaf-pk")}
	r := NewResolver(nil, nil, v)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			cred, pk, err := r.Resolve(context.Background(), IDCred{
				Label:   LabelX5Chain,
				X5Chain: []byte("same-chain-bytes"),
			})
			require.NoError(t, err)
			assert.Equal(t, []byte("leaf-cred"), cred)
			assert.Equal(t, []byte("leaf-pk"), pk)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, v.calls, n)
}

func TestResolveIdempotent(t *testing.T) {
	known := []Known{{Kid: []byte("device-1"), Cred: []byte("cred-1"), PK: []byte("pk-1")}}
	r := NewResolver(known, nil, nil)

	idCred := IDCred{Label: LabelKid, Kid: []byte("device-1")}
	cred1, pk1, err1 := r.Resolve(context.Background(), idCred)
	cred2, pk2, err2 := r.Resolve(context.Background(), idCred)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, cred1, cred2)
	assert.Equal(t, pk1, pk2)
}

func TestCanonicalKidChainNonePassthrough(t *testing.T) {
	got, err := CanonicalKid(ChainNone, []byte("raw-id"))
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-id"), got)
}

func TestCanonicalKidSolanaRawLength(t *testing.T) {
	raw := make([]byte, 32)
	got, err := CanonicalKid(ChainSolana, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
