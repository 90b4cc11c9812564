package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/consentchain/pkg/chain"
)

type stubNode struct {
	id        uuid.UUID
	hasher    *chain.Hasher
	chains    *chain.MultiChain
	peers     []*chain.Peer
	persisted int
}

func newStubNode() *stubNode {
	return &stubNode{
		id:     uuid.New(),
		hasher: chain.NewHasher([]byte("test-secret")),
		chains: chain.NewMultiChain(),
	}
}

func (s *stubNode) ID() uuid.UUID             { return s.id }
func (s *stubNode) Chains() *chain.MultiChain { return s.chains }

func (s *stubNode) CreateChain(context.Context) (*chain.Chain, error) {
	c := chain.NewChain(s.hasher, chain.WithDifficulty(1))
	if err := s.chains.Put(c.ID(), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *stubNode) PersistChain(context.Context, *chain.Chain) error {
	s.persisted++
	return nil
}

func (s *stubNode) Peers() []*chain.Peer { return s.peers }

func (s *stubNode) AddPeers(_ context.Context, locations []string) ([]*chain.Peer, error) {
	added := make([]*chain.Peer, 0, len(locations))
	for _, location := range locations {
		p, err := chain.NewPeer(location)
		if err != nil {
			return nil, err
		}
		s.peers = append(s.peers, p)
		added = append(added, p)
	}
	return added, nil
}

func testServer(t *testing.T) (*Server, *stubNode) {
	t.Helper()

	n := newStubNode()
	return NewServer(n), n
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFrontpage(t *testing.T) {
	s, n := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, n.ID().String(), body["node"])
}

func TestCreateAndGetChain(t *testing.T) {
	s, n := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/chains", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, 1, n.Chains().Len())
	id := n.Chains().IDs()[0]

	rec = doRequest(t, s, http.MethodGet, "/chains/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["length"])
}

func TestGetChainBadRef(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/chains/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/chains/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBlocksContract(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)
	c.NewBlock(12345, "")

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/blocks", c.ID()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["length"])
	assert.Len(t, body["blocks"], 2)
}

func TestGetBlock(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)
	sealed := c.NewBlock(12345, "")

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/blocks/%s", c.ID(), sealed.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/blocks/1", c.ID()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/blocks/9", c.ID()), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/blocks/zzz", c.ID()), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMine(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/mine", c.ID()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, n.persisted)
	assert.True(t, c.ValidateBlocks(c.Blocks()))

	// the reward transaction names this node as recipient
	tip := c.LastBlock()
	require.Len(t, tip.Transactions, 1)
	assert.Equal(t, "0", tip.Transactions[0].Sender)
	assert.Equal(t, n.ID().String(), tip.Transactions[0].Recipient)
}

func TestNewTransaction(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)

	target := fmt.Sprintf("/chains/%s/transactions", c.ID())

	rec := doRequest(t, s, http.MethodPost, target,
		`{"sender":"alice","recipient":"bob","amount":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["index"])

	rec = doRequest(t, s, http.MethodPost, target, `{"sender":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, target,
		`{"sender":"alice","recipient":"bob","amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsentFlow(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)

	target := fmt.Sprintf("/chains/%s/consents", c.ID())

	rec := doRequest(t, s, http.MethodPost, target, `{"action":"email-read","consent":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, target, `{"action":"shoe-size","consent":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, target, `{"action":"email-read"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c.NewBlock(12345, "")

	rec = doRequest(t, s, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["consents"], len(chain.KnownActions()))

	rec = doRequest(t, s, http.MethodGet, target+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["history"], 2)
}

func TestRegisterNodes(t *testing.T) {
	s, n := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/nodes", `{"nodes":["127.0.0.1:1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, n.peers, 1)
	assert.Equal(t, "http://127.0.0.1:1", n.peers[0].URL())

	rec = doRequest(t, s, http.MethodPost, "/nodes", `{"nodes":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["nodes"], 1)
}

func TestResolveNoPeers(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/resolve", c.ID()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["replaced"])
	assert.Empty(t, body["validated"])
	assert.Equal(t, 0, n.persisted)
}

func TestResolveCheckOnly(t *testing.T) {
	s, n := testServer(t)

	c, err := n.CreateChain(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/chains/%s/resolve?check=true", c.ID()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Nil(t, body["consistent"])
}

func TestListChains(t *testing.T) {
	s, n := testServer(t)

	_, err := n.CreateChain(context.Background())
	require.NoError(t, err)
	_, err = n.CreateChain(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["length"])
	assert.Len(t, body["chains"], 2)
}
