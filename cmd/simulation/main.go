package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclob/venue/internal/auth"
	"github.com/openclob/venue/internal/types"
)

const (
	minOrders     = 50
	maxOrders     = 300
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	securityID    = "IRO3"

	// The broker bound to the simulation's API credentials; orders for any
	// other broker are rejected by the order-entry handlers.
	simBrokerID = int64(1)
)

var sides = []string{"BUY", "SELL"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the venue API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client

	mu    sync.Mutex
	stats map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":   {name: "Authentication"},
			"create": {name: "Create Order"},
			"update": {name: "Update Order"},
			"delete": {name: "Delete Order"},
			"get":    {name: "Get Order"},
			"state":  {name: "Change State"},
		},
	}

	// Get auth token
	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats[route].addDuration(time.Since(start))
	if failed {
		sc.stats[route].failures++
	}
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	var failed bool
	defer func() { sc.record("auth", start, failed) }()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		failed = true
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		failed = true
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
		Token string `json:"jwt_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		failed = true
		return "", err
	}
	if result.Data.Token != "" {
		return result.Data.Token, nil
	}
	return result.Token, nil
}

// doJSON issues an authenticated request with an optional JSON body and
// decodes the standard envelope into out.
func (sc *simulationClient) doJSON(method, url string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("response", string(respBody)).Str("url", url).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, url, resp.StatusCode, string(respBody))
	}

	envelope := struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	return nil
}

// createOrder submits a new order to the API
func (sc *simulationClient) createOrder(order *types.OrderRequest) (*types.OrderResponse, error) {
	start := time.Now()
	var failed bool
	defer func() { sc.record("create", start, failed) }()

	var resp types.OrderResponse
	if err := sc.doJSON("POST", fmt.Sprintf("%s/api/v1/orders", sc.baseURL), order, &resp); err != nil {
		failed = true
		return nil, err
	}
	return &resp, nil
}

// updateOrder modifies a resting order
func (sc *simulationClient) updateOrder(order *types.OrderRequest) (*types.OrderResponse, error) {
	start := time.Now()
	var failed bool
	defer func() { sc.record("update", start, failed) }()

	var resp types.OrderResponse
	url := fmt.Sprintf("%s/api/v1/orders/%d", sc.baseURL, order.OrderID)
	if err := sc.doJSON("PUT", url, order, &resp); err != nil {
		failed = true
		return nil, err
	}
	return &resp, nil
}

// deleteOrder removes a resting order
func (sc *simulationClient) deleteOrder(orderID int64, side string) error {
	start := time.Now()
	var failed bool
	defer func() { sc.record("delete", start, failed) }()

	url := fmt.Sprintf("%s/api/v1/orders/%d?security_id=%s&side=%s", sc.baseURL, orderID, securityID, side)
	if err := sc.doJSON("DELETE", url, nil, &types.OrderResponse{}); err != nil {
		failed = true
		return err
	}
	return nil
}

// getOrder retrieves the persisted state of an order
func (sc *simulationClient) getOrder(orderID int64) error {
	start := time.Now()
	var failed bool
	defer func() { sc.record("get", start, failed) }()

	url := fmt.Sprintf("%s/api/v1/orders/%d?security_id=%s", sc.baseURL, orderID, securityID)
	if err := sc.doJSON("GET", url, nil, &map[string]interface{}{}); err != nil {
		failed = true
		return err
	}
	return nil
}

// changeMatchingState flips the trading regime of the simulated instrument
func (sc *simulationClient) changeMatchingState(state string) (*types.MatchingStateResponse, error) {
	start := time.Now()
	var failed bool
	defer func() { sc.record("state", start, failed) }()

	var resp types.MatchingStateResponse
	url := fmt.Sprintf("%s/api/v1/internal/matching-state/%s", sc.baseURL, securityID)
	if err := sc.doJSON("POST", url, &types.MatchingStateRequest{State: state}, &resp); err != nil {
		failed = true
		return nil, err
	}
	return &resp, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

var nextOrderID int64

// randomOrder produces a random order request: mostly plain limit orders with
// an occasional iceberg, minimum-execution or stop order mixed in.
func randomOrder() *types.OrderRequest {
	orderID := atomic.AddInt64(&nextOrderID, 1)
	quantity := (rand.Intn(20) + 1) * 10
	price := 15000 + rand.Intn(200) - 100

	req := &types.OrderRequest{
		RequestID:     orderID,
		OrderID:       orderID,
		SecurityID:    securityID,
		Side:          sides[rand.Intn(len(sides))],
		Quantity:      quantity,
		Price:         price,
		BrokerID:      simBrokerID,
		ShareholderID: int64(rand.Intn(2) + 1),
	}

	switch rand.Intn(10) {
	case 0:
		req.PeakSize = quantity / 2
	case 1:
		req.MinExecQuantity = quantity / 2
	case 2:
		if req.Side == "BUY" {
			req.StopPrice = price - 50
		} else {
			req.StopPrice = price + 50
		}
	}
	return req
}

// main runs the order-flow simulation: concurrent workers stream random
// orders at the venue, a subset gets updated or deleted, and the instrument
// is flipped through an auction once mid-run.
func main() {
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	stats := struct {
		sync.Mutex
		Accepted int
		Rejected int
		Trades   int
		Volume   int64
		Sides    map[string]int
	}{Sides: make(map[string]int)}

	ordersChan := make(chan *types.OrderRequest, targetOrders)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < targetOrders/numWorkers; j++ {
				order := randomOrder()
				resp, err := simClient.createOrder(order)
				if err != nil {
					stats.Lock()
					stats.Rejected++
					stats.Unlock()
					log.Debug().Err(err).Int64("order_id", order.OrderID).Msg("Order rejected")
					continue
				}

				stats.Lock()
				stats.Accepted++
				stats.Trades += len(resp.Trades)
				for _, t := range resp.Trades {
					stats.Volume += int64(t.Price) * int64(t.Quantity)
				}
				stats.Sides[order.Side]++
				stats.Unlock()

				ordersChan <- order
				log.Info().
					Int("worker_id", workerID).
					Int64("order_id", order.OrderID).
					Str("side", order.Side).
					Int("quantity", order.Quantity).
					Int("price", order.Price).
					Str("status", resp.Status).
					Int("trades", len(resp.Trades)).
					Msg("Order entered")

				time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(ordersChan)

	var entered []*types.OrderRequest
	for order := range ordersChan {
		entered = append(entered, order)
	}

	// Update or delete a slice of the resting orders
	for _, order := range entered {
		switch rand.Intn(10) {
		case 0:
			order.Price += 10
			order.RequestID = atomic.AddInt64(&nextOrderID, 1)
			if _, err := simClient.updateOrder(order); err != nil {
				log.Debug().Err(err).Int64("order_id", order.OrderID).Msg("Update rejected")
			}
		case 1:
			if err := simClient.deleteOrder(order.OrderID, order.Side); err != nil {
				log.Debug().Err(err).Int64("order_id", order.OrderID).Msg("Delete rejected")
			}
		case 2:
			if err := simClient.getOrder(order.OrderID); err != nil {
				log.Debug().Err(err).Int64("order_id", order.OrderID).Msg("Get failed")
			}
		}
	}

	// Run the instrument through an auction and back
	if _, err := simClient.changeMatchingState("AUCTION"); err != nil {
		log.Error().Err(err).Msg("Failed to enter auction")
	}
	for i := 0; i < 20; i++ {
		order := randomOrder()
		order.PeakSize = 0
		order.MinExecQuantity = 0
		order.StopPrice = 0
		if _, err := simClient.createOrder(order); err != nil {
			log.Debug().Err(err).Int64("order_id", order.OrderID).Msg("Auction order rejected")
		}
	}
	uncross, err := simClient.changeMatchingState("CONTINUOUS")
	if err != nil {
		log.Error().Err(err).Msg("Failed to leave auction")
	} else {
		stats.Lock()
		stats.Trades += len(uncross.Trades)
		for _, t := range uncross.Trades {
			stats.Volume += int64(t.Price) * int64(t.Quantity)
		}
		stats.Unlock()
		log.Info().Int("uncross_trades", len(uncross.Trades)).Msg("Auction uncrossed")
	}

	duration := time.Since(start)

	// Print summary
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚀 VENUE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Order Statistics
------------------
Orders Accepted:  %d
Orders Rejected:  %d
Trades:           %d
Traded Value:     %d
Duration:         %v

📉 Side Distribution
------------------
`, stats.Accepted, stats.Rejected, stats.Trades, stats.Volume, duration.Round(time.Millisecond))

	for side, count := range stats.Sides {
		barLength := 0
		if stats.Accepted > 0 {
			barLength = count * 20 / stats.Accepted
		}
		fmt.Printf("%-4s: %s (%d)\n", side, strings.Repeat("█", barLength), count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	simClient.printPerformanceStats()

	log.Info().
		Int("accepted", stats.Accepted).
		Int("trades", stats.Trades).
		Dur("duration", duration).
		Msg("Simulation completed")
}
