package drand

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"randomness-relay/common"
	"randomness-relay/log"

	"github.com/dghubble/sling"
)

const (
	defaultMaxIdleConns    = 10
	defaultIdleConnTimeout = 2 * time.Second
)

// Config is the configuration of the HTTPClient
type Config struct {
	Servers   []string
	ChainHash string
	// Period and GenesisTime are fetched from the servers when zero
	Period      time.Duration
	GenesisTime int64
	Timeout     time.Duration
}

// HTTPClient fetches rounds from a list of drand HTTP servers.  Servers are
// tried in order until one answers.
type HTTPClient struct {
	servers   []*sling.Sling
	chainHash string
	info      ChainInfo
	now       func() time.Time
}

// NewHTTPClient creates a HTTPClient.  When the chain schedule is not
// configured it's read from the servers.
func NewHTTPClient(ctx context.Context, cfg *Config) (*HTTPClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, common.Wrap(fmt.Errorf("no drand servers configured"))
	}
	tr := &http.Transport{
		MaxIdleConns:    defaultMaxIdleConns,
		IdleConnTimeout: defaultIdleConnTimeout,
	}
	httpClient := &http.Client{Transport: tr, Timeout: cfg.Timeout}
	c := &HTTPClient{
		chainHash: cfg.ChainHash,
		now:       time.Now,
	}
	for _, server := range cfg.Servers {
		if !strings.HasSuffix(server, "/") {
			server += "/"
		}
		c.servers = append(c.servers, sling.New().Base(server).Client(httpClient))
	}
	if cfg.Period == 0 || cfg.GenesisTime == 0 {
		info, err := c.FetchChainInfo(ctx)
		if err != nil {
			return nil, common.Wrap(err)
		}
		c.info = *info
	} else {
		c.info = ChainInfo{
			Period:      uint64(cfg.Period / time.Second),
			GenesisTime: cfg.GenesisTime,
			Hash:        cfg.ChainHash,
		}
	}
	if c.info.Period == 0 {
		return nil, common.Wrap(fmt.Errorf("invalid drand chain period"))
	}
	log.Infow("drand client ready", "chain", c.chainHash, "period", c.info.Period,
		"genesis", c.info.GenesisTime, "servers", len(c.servers))
	return c, nil
}

// Info returns the chain information
func (c *HTTPClient) Info() *ChainInfo {
	return &c.info
}

// FetchChainInfo reads the chain information from the first server that
// answers
func (c *HTTPClient) FetchChainInfo(ctx context.Context) (*ChainInfo, error) {
	var lastErr error
	for _, server := range c.servers {
		var info ChainInfo
		status, err := c.get(ctx, server, c.chainHash+"/info", &info)
		if err == nil && status != http.StatusOK {
			err = fmt.Errorf("unexpected status %d", status)
		}
		if err == nil && info.Hash != "" && !strings.EqualFold(info.Hash, c.chainHash) {
			err = fmt.Errorf("chain hash mismatch: %s", info.Hash)
		}
		if err == nil {
			return &info, nil
		}
		lastErr = err
		log.Warnw("drand: chain info request failed", "err", err)
	}
	return nil, common.Wrap(lastErr)
}

// Round fetches round from the servers.  ErrRoundNotAvailable is returned
// for rounds in the future.
func (c *HTTPClient) Round(ctx context.Context, round uint64) (*common.DrandRound, error) {
	if round == 0 {
		return nil, common.Wrap(fmt.Errorf("invalid drand round 0"))
	}
	if c.info.TimeOfRound(round) > uint64(c.now().Unix()) {
		return nil, common.Wrap(ErrRoundNotAvailable)
	}
	var lastErr error
	for _, server := range c.servers {
		r, err := c.round(ctx, server, round)
		if err == nil || IsErrRoundNotAvailable(err) {
			return r, err
		}
		lastErr = err
		log.Debugw("drand: round request failed", "round", round, "err", err)
	}
	return nil, common.Wrap(lastErr)
}

func (c *HTTPClient) round(ctx context.Context, server *sling.Sling,
	round uint64) (*common.DrandRound, error) {
	var r common.DrandRound
	status, err := c.get(ctx, server, fmt.Sprintf("%s/public/%d", c.chainHash, round), &r)
	if err != nil {
		return nil, common.Wrap(err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusTooEarly:
		return nil, common.Wrap(ErrRoundNotAvailable)
	default:
		return nil, common.Wrap(fmt.Errorf("unexpected status %d", status))
	}
	if r.Round != round {
		return nil, common.Wrap(fmt.Errorf("%w: requested %d, got %d", ErrRoundMismatch,
			round, r.Round))
	}
	if _, err := r.Value(); err != nil {
		return nil, common.Wrap(err)
	}
	return &r, nil
}

func (c *HTTPClient) get(ctx context.Context, server *sling.Sling, path string,
	successV interface{}) (int, error) {
	req, err := server.New().Get(path).Request()
	if err != nil {
		return 0, common.Wrap(err)
	}
	res, err := server.Do(req.WithContext(ctx), successV, nil)
	if err != nil {
		return 0, common.Wrap(err)
	}
	return res.StatusCode, nil
}
