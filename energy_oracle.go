package xcb

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Returned by MedianOracle when none of its oracles produced a price.
var ErrNoOracleValues = errors.New("no energy price oracle returned a value")

// Source of energy prices, in ore.
type EnergyOracle interface {
	Fetch(ctx context.Context) (*big.Int, error)
}

// Speed tiers published by energy price services.
type EnergyCategory int

const (
	SafeLow EnergyCategory = iota
	Standard
	Fast
	Fastest
)

func (self EnergyCategory) String() string {
	switch self {
	case SafeLow:
		return "safeLow"
	case Standard:
		return "standard"
	case Fast:
		return "fast"
	case Fastest:
		return "fastest"
	default:
		return "unknown"
	}
}

// Asks the node via "GetEnergyPrice".
type ProviderOracle struct {
	Client Middleware
}

func (self ProviderOracle) Fetch(ctx context.Context) (*big.Int, error) {
	return self.Client.GetEnergyPrice(ctx)
}

// Always the same price.
type FixedOracle struct {
	Price *big.Int
}

func (self FixedOracle) Fetch(context.Context) (*big.Int, error) {
	if self.Price == nil {
		return nil, errors.New(`fixed energy price oracle has no price`)
	}
	return new(big.Int).Set(self.Price), nil
}

/*
Remembers the last price of another oracle for "Validity". Failures aren't
cached. Safe for concurrent use. Concurrent fetches of a stale price share one
call to the inner oracle; the lock is never held during that call, and callers
waiting on it return as soon as their own context is done.
*/
type CacheOracle struct {
	Oracle   EnergyOracle
	Validity time.Duration

	lock    sync.Mutex
	price   *big.Int
	fetched time.Time
	flight  *priceFlight
}

// Result of one inner fetch, published by closing "done".
type priceFlight struct {
	done  chan struct{}
	price *big.Int
	err   error
}

func NewCacheOracle(oracle EnergyOracle, validity time.Duration) *CacheOracle {
	return &CacheOracle{Oracle: oracle, Validity: validity}
}

func (self *CacheOracle) Fetch(ctx context.Context) (*big.Int, error) {
	self.lock.Lock()
	if self.price != nil && time.Since(self.fetched) < self.Validity {
		out := new(big.Int).Set(self.price)
		self.lock.Unlock()
		return out, nil
	}

	flight := self.flight
	if flight != nil {
		self.lock.Unlock()
		return flight.wait(ctx)
	}

	flight = &priceFlight{done: make(chan struct{})}
	self.flight = flight
	self.lock.Unlock()

	price, err := self.Oracle.Fetch(ctx)
	if err == nil && price == nil {
		err = errors.New(`energy price oracle returned no price`)
	}

	self.lock.Lock()
	if err == nil {
		self.price = price
		self.fetched = time.Now()
	}
	self.flight = nil
	self.lock.Unlock()

	flight.price, flight.err = price, err
	close(flight.done)

	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(price), nil
}

func (self *priceFlight) wait(ctx context.Context) (*big.Int, error) {
	select {
	case <-self.done:
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
	if self.err != nil {
		return nil, self.err
	}
	return new(big.Int).Set(self.price), nil
}

type WeightedOracle struct {
	Oracle EnergyOracle
	Weight float64
}

/*
Queries all oracles concurrently and returns the weighted median of the prices
that arrived. Failed oracles are skipped.
*/
type MedianOracle struct {
	Oracles []WeightedOracle
}

func (self *MedianOracle) Add(oracle EnergyOracle) *MedianOracle {
	return self.AddWeighted(oracle, 1)
}

func (self *MedianOracle) AddWeighted(oracle EnergyOracle, weight float64) *MedianOracle {
	self.Oracles = append(self.Oracles, WeightedOracle{Oracle: oracle, Weight: weight})
	return self
}

type weightedPrice struct {
	price  *big.Int
	weight float64
}

func (self *MedianOracle) Fetch(ctx context.Context) (*big.Int, error) {
	results := make([]*weightedPrice, len(self.Oracles))

	var wg sync.WaitGroup
	for i, oracle := range self.Oracles {
		wg.Add(1)
		go func(i int, oracle WeightedOracle) {
			defer wg.Done()
			price, err := oracle.Oracle.Fetch(ctx)
			if err == nil && price != nil && oracle.Weight > 0 {
				results[i] = &weightedPrice{price: price, weight: oracle.Weight}
			}
		}(i, oracle)
	}
	wg.Wait()

	var prices []weightedPrice
	for _, result := range results {
		if result != nil {
			prices = append(prices, *result)
		}
	}
	return weightedMedian(prices)
}

func weightedMedian(prices []weightedPrice) (*big.Int, error) {
	if len(prices) == 0 {
		return nil, errors.WithStack(ErrNoOracleValues)
	}

	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].price.Cmp(prices[j].price) < 0
	})

	total := 0.0
	for _, price := range prices {
		total += price.weight
	}

	acc := 0.0
	for _, price := range prices {
		acc += price.weight
		if acc*2 >= total {
			return new(big.Int).Set(price.price), nil
		}
	}
	return new(big.Int).Set(prices[len(prices)-1].price), nil
}

/*
Reads prices from an HTTP endpoint that returns a JSON object with "safeLow",
"standard", "fast" and "fastest" fields, in nucle.
*/
type HttpOracle struct {
	Url      string
	Category EnergyCategory

	// Defaults to a fresh "resty.New()".
	Client *resty.Client
}

type httpOracleResponse struct {
	SafeLow  float64 `json:"safeLow"`
	Standard float64 `json:"standard"`
	Fast     float64 `json:"fast"`
	Fastest  float64 `json:"fastest"`
}

func (self httpOracleResponse) pick(category EnergyCategory) float64 {
	switch category {
	case SafeLow:
		return self.SafeLow
	case Fast:
		return self.Fast
	case Fastest:
		return self.Fastest
	default:
		return self.Standard
	}
}

func (self HttpOracle) Fetch(ctx context.Context) (*big.Int, error) {
	client := self.Client
	if client == nil {
		client = resty.New()
	}

	var body httpOracleResponse
	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&body).
		Get(self.Url)
	if err != nil {
		return nil, transportErr("energy oracle", err)
	}
	if res.IsError() {
		return nil, transportErr("energy oracle", errors.Errorf("%s: %s", res.Status(), res.Body()))
	}

	nucle := body.pick(self.Category)
	if nucle <= 0 {
		return nil, errors.Errorf(`energy oracle at %v returned no %v price`, self.Url, self.Category)
	}
	return nucleToOre(nucle), nil
}

func nucleToOre(nucle float64) *big.Int {
	num := big.NewFloat(nucle)
	num.Mul(num, new(big.Float).SetInt(Nucle.Multiplier()))
	out, _ := num.Int(nil)
	return out
}

/*
Middleware layer that takes energy prices from an oracle instead of the node.
Requests that already carry a price keep it.
*/
type EnergyOracleMiddleware struct {
	Middleware
	Oracle EnergyOracle
}

const energyOracleLayer = "energy oracle"

func NewEnergyOracleMiddleware(inner Middleware, oracle EnergyOracle) *EnergyOracleMiddleware {
	return &EnergyOracleMiddleware{Middleware: inner, Oracle: oracle}
}

func (self *EnergyOracleMiddleware) GetEnergyPrice(ctx context.Context) (*big.Int, error) {
	price, err := self.Oracle.Fetch(ctx)
	return price, layerErr(energyOracleLayer, err)
}

func (self *EnergyOracleMiddleware) FillTransaction(ctx context.Context, tx *TxRequest, at BlockId) error {
	if tx.EnergyPrice == nil {
		price, err := self.GetEnergyPrice(ctx)
		if err != nil {
			return err
		}
		tx.EnergyPrice = price
	}
	return innerErr(energyOracleLayer, self.Middleware.FillTransaction(ctx, tx, at))
}

func (self *EnergyOracleMiddleware) SendTransaction(ctx context.Context, tx TxRequest, at BlockId) (*PendingTx, error) {
	tx = tx.Clone()
	err := self.FillTransaction(ctx, &tx, at)
	if err != nil {
		return nil, err
	}
	pending, err := self.Middleware.SendTransaction(ctx, tx, at)
	return pending, innerErr(energyOracleLayer, err)
}
