package drand

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"randomness-relay/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChainHash   = "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971"
	testGenesisTime = 1692803367
	testPeriod      = 3
	testRandomness  = "a1a4e9e4cb8a1ec40e6fe10b8dbb5d8a9c2b0d2e7b4c0f0a9f0e1d2c3b4a5968"
)

func newBeaconServer(t *testing.T, latest uint64, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path == "/"+testChainHash+"/info" {
			require.NoError(t, json.NewEncoder(w).Encode(ChainInfo{
				Period:      testPeriod,
				GenesisTime: testGenesisTime,
				Hash:        testChainHash,
			}))
			return
		}
		var round uint64
		if _, err := fmt.Sscanf(r.URL.Path, "/"+testChainHash+"/public/%d", &round); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if round > latest {
			w.WriteHeader(http.StatusTooEarly)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(common.DrandRound{
			Round:      round,
			Randomness: testRandomness,
			Signature:  "00",
		}))
	}))
}

func TestChainInfoSchedule(t *testing.T) {
	info := ChainInfo{Period: 3, GenesisTime: 1000}
	assert.Equal(t, uint64(0), info.RoundAt(999))
	assert.Equal(t, uint64(1), info.RoundAt(1000))
	assert.Equal(t, uint64(1), info.RoundAt(1002))
	assert.Equal(t, uint64(2), info.RoundAt(1003))
	assert.Equal(t, uint64(1000), info.TimeOfRound(1))
	assert.Equal(t, uint64(1006), info.TimeOfRound(3))
	for r := uint64(1); r < 50; r++ {
		assert.Equal(t, r, info.RoundAt(info.TimeOfRound(r)))
	}
}

func TestHTTPClientFetchesInfo(t *testing.T) {
	server := newBeaconServer(t, 10, nil)
	defer server.Close()

	c, err := NewHTTPClient(context.Background(), &Config{
		Servers:   []string{server.URL},
		ChainHash: testChainHash,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(testPeriod), c.Info().Period)
	assert.Equal(t, int64(testGenesisTime), c.Info().GenesisTime)
}

func TestHTTPClientRound(t *testing.T) {
	server := newBeaconServer(t, 10, nil)
	defer server.Close()

	c, err := NewHTTPClient(context.Background(), &Config{
		Servers:     []string{server.URL},
		ChainHash:   testChainHash,
		Period:      testPeriod * time.Second,
		GenesisTime: testGenesisTime,
		Timeout:     time.Second,
	})
	require.NoError(t, err)

	r, err := c.Round(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r.Round)
	value, err := r.Value()
	require.NoError(t, err)
	assert.Equal(t, "0x"+testRandomness, value.Hex())

	// Produced according to the clock but not served yet
	_, err = c.Round(context.Background(), 11)
	assert.True(t, IsErrRoundNotAvailable(err))

	// In the future: no request is made
	c.now = func() time.Time { return time.Unix(testGenesisTime, 0) }
	_, err = c.Round(context.Background(), 5)
	assert.True(t, IsErrRoundNotAvailable(err))
}

func TestHTTPClientFailover(t *testing.T) {
	var badHits, goodHits int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&badHits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := newBeaconServer(t, 10, &goodHits)
	defer good.Close()

	c, err := NewHTTPClient(context.Background(), &Config{
		Servers:     []string{bad.URL, good.URL},
		ChainHash:   testChainHash,
		Period:      testPeriod * time.Second,
		GenesisTime: testGenesisTime,
	})
	require.NoError(t, err)

	r, err := c.Round(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Round)
	assert.Equal(t, int32(1), atomic.LoadInt32(&badHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&goodHits))
}

func TestHTTPClientFetchError(t *testing.T) {
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/public/4") {
			_, _ = w.Write([]byte(`{"round": 5, "randomness": "00"}`))
			return
		}
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer malformed.Close()

	c, err := NewHTTPClient(context.Background(), &Config{
		Servers:     []string{malformed.URL},
		ChainHash:   testChainHash,
		Period:      testPeriod * time.Second,
		GenesisTime: testGenesisTime,
	})
	require.NoError(t, err)

	_, err = c.Round(context.Background(), 3)
	require.Error(t, err)
	assert.False(t, IsErrRoundNotAvailable(err))

	_, err = c.Round(context.Background(), 4)
	require.Error(t, err)
	assert.ErrorIs(t, common.Unwrap(err), ErrRoundMismatch)
}
