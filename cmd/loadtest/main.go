// Command loadtest fires concurrent reservations at one show of a running
// server and then checks that no seat was handed out twice.
//
//	go run ./cmd/loadtest -host http://localhost:8080 -show 1 -requests 2000 -concurrency 200
//
// Tokens are minted locally, so -secret (or JWT_SECRET) must match the
// server's secret.  Every request uses its own user id so the per-user
// rate limit does not skew the result.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/router"
	"github.com/iliyamo/cinema-seat-booking/internal/utils"
)

type Config struct {
	Host        string
	Secret      string
	ShowID      uint64
	Requests    int
	Concurrency int
	Quantity    int
	FirstUserID uint64
}

type seatMapResponse struct {
	ShowID uint64 `json:"show_id"`
	Screen struct {
		Number int `json:"number"`
		Rows   int `json:"rows"`
		Cols   int `json:"cols"`
	} `json:"screen"`
	BookedSeats    []string `json:"booked_seats"`
	AvailableSeats []string `json:"available_seats"`
}

type reserveResponse struct {
	Booking struct {
		ID    uint64   `json:"id"`
		Seats []string `json:"seats"`
	} `json:"booking"`
	Conflicts []string `json:"conflicts"`
	Error     string   `json:"error"`
}

// Metrics collects per-request outcomes across workers.
type Metrics struct {
	success   int64
	conflicts int64
	failures  int64

	mu          sync.Mutex
	latencies   []time.Duration
	bookedSeats map[string]uint64 // label -> booking id
	duplicates  []string
}

func (m *Metrics) record(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func (m *Metrics) claim(bookingID uint64, labels []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range labels {
		if prev, ok := m.bookedSeats[l]; ok {
			m.duplicates = append(m.duplicates, fmt.Sprintf("%s (bookings %d and %d)", l, prev, bookingID))
			continue
		}
		m.bookedSeats[l] = bookingID
	}
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.Host, "host", "http://localhost:8080", "API base URL")
	flag.StringVar(&cfg.Secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret (defaults to JWT_SECRET)")
	flag.Uint64Var(&cfg.ShowID, "show", 1, "show id to book")
	flag.IntVar(&cfg.Requests, "requests", 1000, "total number of reservation requests")
	flag.IntVar(&cfg.Concurrency, "concurrency", 100, "number of concurrent workers")
	flag.IntVar(&cfg.Quantity, "quantity", 2, "seats per reservation")
	flag.Uint64Var(&cfg.FirstUserID, "first-user", 100000, "user id of the first simulated customer")
	flag.Parse()

	if cfg.Secret == "" {
		fmt.Println("❌ -secret or JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.Requests < 1 || cfg.Concurrency < 1 || cfg.Quantity < 1 {
		fmt.Println("❌ -requests, -concurrency and -quantity must be positive")
		os.Exit(1)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	before, err := fetchSeatMap(client, cfg)
	if err != nil {
		fmt.Printf("❌ Could not load seat map: %v\n", err)
		os.Exit(1)
	}
	rows, cols := before.Screen.Rows, before.Screen.Cols
	fmt.Printf("🎬 Show %d on screen %d (%dx%d), %d seats already booked\n",
		cfg.ShowID, before.Screen.Number, rows, cols, len(before.BookedSeats))

	metrics := &Metrics{bookedSeats: make(map[string]uint64)}
	jobs := make(chan int, cfg.Requests)
	for i := 0; i < cfg.Requests; i++ {
		jobs <- i
	}
	close(jobs)

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
			for i := range jobs {
				userID := cfg.FirstUserID + uint64(i)
				seats := pickSeats(rng, rows, cols, cfg.Quantity)
				reserve(client, cfg, userID, seats, metrics)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	after, err := fetchSeatMap(client, cfg)
	if err != nil {
		fmt.Printf("❌ Could not reload seat map: %v\n", err)
		os.Exit(1)
	}

	printReport(cfg, metrics, elapsed, before, after)
	if len(metrics.duplicates) > 0 || !consistent(metrics, before, after) {
		os.Exit(2)
	}
}

// pickSeats chooses quantity distinct random seats of a rows x cols grid.
func pickSeats(rng *rand.Rand, rows, cols, quantity int) [][2]int {
	total := rows * cols
	if quantity > total {
		quantity = total
	}
	perm := rng.Perm(total)[:quantity]
	out := make([][2]int, 0, quantity)
	for _, p := range perm {
		out = append(out, [2]int{p / cols, p % cols})
	}
	return out
}

func reserve(client *http.Client, cfg Config, userID uint64, seats [][2]int, m *Metrics) {
	tok, err := utils.NewAccessToken(cfg.Secret, userID, router.CustomerRole, 10)
	if err != nil {
		atomic.AddInt64(&m.failures, 1)
		return
	}
	body, _ := json.Marshal(map[string]any{"show_id": cfg.ShowID, "seats": seats})
	req, err := http.NewRequest(http.MethodPost, cfg.Host+"/v1/bookings", bytes.NewReader(body))
	if err != nil {
		atomic.AddInt64(&m.failures, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	started := time.Now()
	resp, err := client.Do(req)
	m.record(time.Since(started))
	if err != nil {
		atomic.AddInt64(&m.failures, 1)
		return
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out reserveResponse
	_ = json.Unmarshal(raw, &out)
	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
		m.claim(out.Booking.ID, out.Booking.Seats)
	case http.StatusConflict:
		atomic.AddInt64(&m.conflicts, 1)
	default:
		atomic.AddInt64(&m.failures, 1)
	}
}

func fetchSeatMap(client *http.Client, cfg Config) (*seatMapResponse, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/shows/%d/seats", cfg.Host, cfg.ShowID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out seatMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// consistent reports whether the seats this run booked are exactly the
// seats the server added to the seat map.
func consistent(m *Metrics, before, after *seatMapResponse) bool {
	prior := make(map[string]bool, len(before.BookedSeats))
	for _, l := range before.BookedSeats {
		prior[l] = true
	}
	added := 0
	for _, l := range after.BookedSeats {
		if !prior[l] {
			added++
			if _, ok := m.bookedSeats[l]; !ok {
				return false
			}
		}
	}
	return added == len(m.bookedSeats)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printReport(cfg Config, m *Metrics, elapsed time.Duration, before, after *seatMapResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })

	fmt.Println("\n📊 Results")
	fmt.Printf("  Requests:     %d in %s (%.1f req/s)\n", cfg.Requests, elapsed.Round(time.Millisecond),
		float64(cfg.Requests)/elapsed.Seconds())
	fmt.Printf("  Booked:       %d\n", atomic.LoadInt64(&m.success))
	fmt.Printf("  Conflicts:    %d\n", atomic.LoadInt64(&m.conflicts))
	fmt.Printf("  Failures:     %d\n", atomic.LoadInt64(&m.failures))
	fmt.Printf("  Latency p50:  %s\n", percentile(m.latencies, 0.50))
	fmt.Printf("  Latency p95:  %s\n", percentile(m.latencies, 0.95))
	fmt.Printf("  Latency p99:  %s\n", percentile(m.latencies, 0.99))
	fmt.Printf("  Seat map:     %d booked before, %d after, %d available\n",
		len(before.BookedSeats), len(after.BookedSeats), len(after.AvailableSeats))

	if len(m.duplicates) > 0 {
		fmt.Printf("❌ %d seats were booked twice:\n", len(m.duplicates))
		for _, d := range m.duplicates {
			fmt.Printf("    %s\n", d)
		}
		return
	}
	if !consistent(m, before, after) {
		fmt.Println("❌ Seat map does not match the confirmed bookings")
		return
	}
	fmt.Println("✅ No seat was booked twice")
}
